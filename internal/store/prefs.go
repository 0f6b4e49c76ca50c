package store

import (
	"log"
	"sync"

	"github.com/npezzotti/rocketgate/internal/database"
)

// PrefStore holds local preferences. Do-not-disturb suppresses toast
// spawning only; the notification list and totals keep updating.
type PrefStore struct {
	mu  sync.Mutex
	dnd bool

	log  *log.Logger
	repo database.StateRepository
}

func NewPrefStore(logger *log.Logger, repo database.StateRepository) *PrefStore {
	p := &PrefStore{log: logger, repo: repo}
	if repo != nil {
		dnd, err := repo.GetDoNotDisturb()
		if err != nil {
			logger.Printf("load do-not-disturb preference: %v", err)
		} else {
			p.dnd = dnd
		}
	}
	return p
}

func (p *PrefStore) DoNotDisturb() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dnd
}

func (p *PrefStore) SetDoNotDisturb(enabled bool) {
	p.mu.Lock()
	p.dnd = enabled
	p.mu.Unlock()
	p.persist(enabled)
}

// Toggle flips the flag and returns the new value.
func (p *PrefStore) Toggle() bool {
	p.mu.Lock()
	p.dnd = !p.dnd
	enabled := p.dnd
	p.mu.Unlock()
	p.persist(enabled)
	return enabled
}

func (p *PrefStore) persist(enabled bool) {
	if p.repo == nil {
		return
	}
	if err := p.repo.SetDoNotDisturb(enabled); err != nil {
		p.log.Printf("persist do-not-disturb preference: %v", err)
	}
}
