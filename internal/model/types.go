package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// PatternProb is one line of a normalized site-pattern table.
type PatternProb struct {
	Pattern string  `json:"pattern"`
	Prob    float64 `json:"prob"`
}

// RunRecord archives one completed simulation run.
type RunRecord struct {
	VersionedRecord
	ID           string        `json:"id"`
	CreatedAtUTC string        `json:"created_at_utc"`
	ModelFile    string        `json:"model_file"`
	Reps         int64         `json:"reps"`
	Workers      int           `json:"workers"`
	Seed         int64         `json:"seed"`
	Singletons   bool          `json:"singletons"`
	Patterns     []PatternProb `json:"patterns"`
}
