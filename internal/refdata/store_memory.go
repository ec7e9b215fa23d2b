package refdata

import (
	"context"
	"sort"
	"sync"

	"custodyprofile/pkg/platform/sentinel"
)

// InMemoryStore is the map-backed Store used by tests and local runs.
type InMemoryStore struct {
	mu    sync.RWMutex
	codes map[string]map[string]Code
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{codes: make(map[string]map[string]Code)}
}

// NewSeededStore returns an in-memory store preloaded with a small usable
// vocabulary for every coded field domain.
func NewSeededStore() *InMemoryStore {
	s := NewInMemoryStore()
	seed := []Code{
		{Domain: "HAIR", Code: "BLACK", Description: "Black", ListSeq: 1, Active: true},
		{Domain: "HAIR", Code: "BROWN", Description: "Brown", ListSeq: 2, Active: true},
		{Domain: "HAIR", Code: "BLONDE", Description: "Blonde", ListSeq: 3, Active: true},
		{Domain: "HAIR", Code: "GREY", Description: "Grey", ListSeq: 4, Active: true},
		{Domain: "HAIR", Code: "BALD", Description: "Bald", ListSeq: 5, Active: true},
		{Domain: "FACIAL_HAIR", Code: "BEARDED", Description: "Full beard", ListSeq: 1, Active: true},
		{Domain: "FACIAL_HAIR", Code: "MOUSTACHE", Description: "Moustache", ListSeq: 2, Active: true},
		{Domain: "FACIAL_HAIR", Code: "CLEAN_SHAVEN", Description: "Clean shaven", ListSeq: 3, Active: true},
		{Domain: "BUILD", Code: "SLIM", Description: "Slim", ListSeq: 1, Active: true},
		{Domain: "BUILD", Code: "MEDIUM", Description: "Medium", ListSeq: 2, Active: true},
		{Domain: "BUILD", Code: "HEAVY", Description: "Heavy", ListSeq: 3, Active: true},
		{Domain: "EYE", Code: "BLUE", Description: "Blue", ListSeq: 1, Active: true},
		{Domain: "EYE", Code: "BROWN", Description: "Brown", ListSeq: 2, Active: true},
		{Domain: "EYE", Code: "GREEN", Description: "Green", ListSeq: 3, Active: true},
		{Domain: "EYE", Code: "HAZEL", Description: "Hazel", ListSeq: 4, Active: true},
		{Domain: "SMOKE", Code: "SMOKER", Description: "Smoker", ListSeq: 1, Active: true},
		{Domain: "SMOKE", Code: "VAPER", Description: "Vaper or e-cigarette user", ListSeq: 2, Active: true},
		{Domain: "SMOKE", Code: "NO", Description: "Does not smoke or vape", ListSeq: 3, Active: true},
		{Domain: "FOOD_ALLERGY", Code: "PEANUT", Description: "Peanuts", ListSeq: 1, Active: true},
		{Domain: "FOOD_ALLERGY", Code: "EGG", Description: "Egg", ListSeq: 2, Active: true},
		{Domain: "FOOD_ALLERGY", Code: "MILK", Description: "Milk", ListSeq: 3, Active: true},
		{Domain: "FOOD_ALLERGY", Code: "GLUTEN", Description: "Cereals containing gluten", ListSeq: 4, Active: true},
	}
	for _, c := range seed {
		s.Put(c)
	}
	return s
}

func (s *InMemoryStore) Put(c Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codes[c.Domain] == nil {
		s.codes[c.Domain] = make(map[string]Code)
	}
	s.codes[c.Domain][c.Code] = c
}

func (s *InMemoryStore) CodesForDomain(_ context.Context, domain string) ([]Code, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Code, 0, len(s.codes[domain]))
	for _, c := range s.codes[domain] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ListSeq < out[j].ListSeq })
	return out, nil
}

func (s *InMemoryStore) FindCode(_ context.Context, domain, code string) (*Code, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.codes[domain][code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}
