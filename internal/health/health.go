// Package health reports liveness and run progress of a command.
package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// Progress tracks the step a command is currently executing.
type Progress struct {
	step atomic.Value
	done atomic.Bool
}

func (p *Progress) Step(name string) { p.step.Store(name) }

func (p *Progress) Done() { p.done.Store(true) }

func (p *Progress) Current() string {
	if s, ok := p.step.Load().(string); ok {
		return s
	}
	return ""
}

func (p *Progress) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type resp struct {
			Step string `json:"step"`
			Done bool   `json:"done"`
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp{Step: p.Current(), Done: p.done.Load()})
	}
}
