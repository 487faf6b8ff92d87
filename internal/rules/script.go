package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/MJE43/partydle/internal/dex"
)

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 250 * time.Millisecond
)

// ErrNoEligibleFunc is returned when a house-rule script does not define
// eligible(entry).
var ErrNoEligibleFunc = errors.New("script does not define eligible(entry)")

// Script is a JavaScript house rule evaluated after the built-in toggles.
// The source must define
//
//	function eligible(entry) { return entry.generation <= 3; }
//
// where entry carries the lower-camel-case fields of dex.Entry plus
// displayKey. A Script is safe for sequential use from multiple goroutines.
type Script struct {
	mu          sync.Mutex
	runtime     *goja.Runtime
	fn          goja.Callable
	name        string
	fingerprint string
	logger      *log.Logger
}

// LoadScript reads and compiles a script file.
func LoadScript(path string) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule script: %w", err)
	}
	return CompileScript(path, string(src))
}

// CompileScript runs source once and binds its eligible function.
func CompileScript(name, source string) (*Script, error) {
	sum := sha256.Sum256([]byte(source))
	s := &Script{
		runtime:     goja.New(),
		name:        name,
		fingerprint: "sha256:" + hex.EncodeToString(sum[:])[:16],
		logger:      log.New(os.Stdout, "[RULES] ", log.LstdFlags),
	}
	s.sandbox()

	err := s.runWithTimeout(scriptInitTimeout, func() error {
		if _, err := s.runtime.RunScript(name, source); err != nil {
			return fmt.Errorf("script execution error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fn := s.runtime.Get("eligible")
	if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
		return nil, ErrNoEligibleFunc
	}
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, fmt.Errorf("eligible is not a function")
	}
	s.fn = callable
	return s, nil
}

// Name returns the name the script was compiled under.
func (s *Script) Name() string { return s.name }

// Fingerprint identifies the script source independently of its file name.
func (s *Script) Fingerprint() string { return s.fingerprint }

func (s *Script) sandbox() {
	s.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		s.logger.Printf("script=%s %s", s.name, strings.Join(parts, " "))
		return goja.Undefined()
	})
	console := s.runtime.NewObject()
	console.Set("log", s.runtime.Get("log"))
	s.runtime.Set("console", console)

	s.runtime.Set("require", goja.Undefined())
	s.runtime.Set("fetch", goja.Undefined())
	s.runtime.Set("XMLHttpRequest", goja.Undefined())
	s.runtime.Set("eval", goja.Undefined())
	s.runtime.Set("Function", goja.Undefined())
}

// Eligible calls eligible(entry) and converts the result to a boolean.
func (s *Script) Eligible(e dex.Entry) (bool, error) {
	var out bool
	err := s.runWithTimeout(scriptCallTimeout, func() error {
		v, err := s.fn(goja.Undefined(), s.runtime.ToValue(entryObject(e)))
		if err != nil {
			return fmt.Errorf("eligible(%s) error: %w", e.DisplayKey(), err)
		}
		out = v.ToBoolean()
		return nil
	})
	return out, err
}

func entryObject(e dex.Entry) map[string]any {
	return map[string]any{
		"id":               e.ID,
		"name":             e.Name,
		"form":             e.Form,
		"displayKey":       e.DisplayKey(),
		"primaryType":      e.PrimaryType,
		"secondaryType":    e.SecondaryType,
		"region":           e.Region,
		"generation":       e.Generation,
		"evolutionMethod":  e.EvolutionMethod,
		"evolutionFamily":  []int(e.EvolutionFamily),
		"legendary":        e.Legendary,
		"mythical":         e.Mythical,
		"baby":             e.Baby,
		"finalEvolution":   e.FinalEvolution,
		"catchable":        e.IgnoreEvolutionRestriction,
		"equivalenceGroup": []int(e.EquivalenceGroup),
		"gameId":           e.GameID,
	}
}

func (s *Script) runWithTimeout(timeout time.Duration, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		s.runtime.Interrupt("script execution timeout")
		err := <-done
		s.runtime.ClearInterrupt()
		if err != nil {
			return fmt.Errorf("script timed out: %w", err)
		}
		return fmt.Errorf("script timed out")
	}
}
