package models

import "encoding/json"

// Memories is a list of memories that survives a JSON round trip with the
// durable/provisional distinction intact.
type Memories []Memory

type storedMemory struct {
	Record
	Provisional    bool   `json:"provisional,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

func (ms Memories) MarshalJSON() ([]byte, error) {
	out := make([]storedMemory, 0, len(ms))
	for _, m := range ms {
		switch v := m.(type) {
		case ProvisionalRecord:
			out = append(out, storedMemory{Record: v.Record, Provisional: true, IdempotencyKey: v.IdempotencyKey})
		default:
			out = append(out, storedMemory{Record: m.Base()})
		}
	}
	return json.Marshal(out)
}

func (ms *Memories) UnmarshalJSON(b []byte) error {
	var in []storedMemory
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	out := make(Memories, 0, len(in))
	for _, s := range in {
		if s.Provisional {
			out = append(out, ProvisionalRecord{Record: s.Record, IdempotencyKey: s.IdempotencyKey})
			continue
		}
		out = append(out, s.Record)
	}
	*ms = out
	return nil
}
