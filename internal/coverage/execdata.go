// Package coverage holds the coverage model and the engine that correlates
// class files with recorded execution data.
package coverage

import (
	"encoding/json"
	"fmt"
	"hash/crc64"
	"io"
	"sort"
	"strconv"
	"strings"
)

var crcTable = crc64.MakeTable(crc64.ECMA)

// ClassID identifies the exact bytes of a class file.
func ClassID(data []byte) uint64 {
	return crc64.Checksum(data, crcTable)
}

// ExecutionData holds the probes recorded for one class at runtime.
type ExecutionData struct {
	ID     uint64
	Name   string
	Probes []bool
}

// HitCount returns the number of probes that fired.
func (d ExecutionData) HitCount() int {
	n := 0
	for _, p := range d.Probes {
		if p {
			n++
		}
	}
	return n
}

// ExecutionDataStore indexes execution data by class id. It is filled once
// and treated as read-only while analyses run.
type ExecutionDataStore struct {
	byID   map[uint64]ExecutionData
	byName map[string][]uint64
}

func NewExecutionDataStore() *ExecutionDataStore {
	return &ExecutionDataStore{
		byID:   make(map[uint64]ExecutionData),
		byName: make(map[string][]uint64),
	}
}

// Put adds data for a class. Data for an id already present is merged by
// OR-ing the probes; a differing name or probe count for the same id is an error.
func (s *ExecutionDataStore) Put(d ExecutionData) error {
	cur, ok := s.byID[d.ID]
	if !ok {
		d.Probes = append([]bool(nil), d.Probes...)
		s.byID[d.ID] = d
		s.byName[d.Name] = append(s.byName[d.Name], d.ID)
		return nil
	}
	if cur.Name != d.Name {
		return fmt.Errorf("execution data: class id %016x recorded as %q and %q", d.ID, cur.Name, d.Name)
	}
	if len(cur.Probes) != len(d.Probes) {
		return fmt.Errorf("execution data: class %q has %d and %d probes", d.Name, len(cur.Probes), len(d.Probes))
	}
	for i, p := range d.Probes {
		cur.Probes[i] = cur.Probes[i] || p
	}
	return nil
}

// Get returns the data recorded for id.
func (s *ExecutionDataStore) Get(id uint64) (ExecutionData, bool) {
	if s == nil {
		return ExecutionData{}, false
	}
	d, ok := s.byID[id]
	return d, ok
}

// HasName reports whether data was recorded for a class of that name under any id.
func (s *ExecutionDataStore) HasName(name string) bool {
	if s == nil {
		return false
	}
	return len(s.byName[name]) > 0
}

func (s *ExecutionDataStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byID)
}

// Contents returns all entries ordered by class name, then id.
func (s *ExecutionDataStore) Contents() []ExecutionData {
	if s == nil {
		return nil
	}
	out := make([]ExecutionData, 0, len(s.byID))
	for _, d := range s.byID {
		d.Probes = append([]bool(nil), d.Probes...)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type execDataDoc struct {
	Classes []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Probes []bool `json:"probes"`
	} `json:"classes"`
}

// DecodeExecutionData reads a JSON execution data dump:
//
//	{"classes":[{"id":"8a3c0f11e2d4b6a7","name":"com/acme/Foo","probes":[true,false]}]}
//
// Ids are hexadecimal, with or without a 0x prefix.
func DecodeExecutionData(r io.Reader) (*ExecutionDataStore, error) {
	var doc execDataDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode execution data: %w", err)
	}
	store := NewExecutionDataStore()
	for i, c := range doc.Classes {
		raw := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.ID)), "0x")
		id, err := strconv.ParseUint(raw, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("decode execution data: class #%d: bad id %q: %w", i, c.ID, err)
		}
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("decode execution data: class #%d: missing name", i)
		}
		if err := store.Put(ExecutionData{ID: id, Name: name, Probes: c.Probes}); err != nil {
			return nil, err
		}
	}
	return store, nil
}
