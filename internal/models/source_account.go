package models

// SourceAccount is one partner agency whose listings are mirrored.
type SourceAccount struct {
	Name string
	ID   int64
}

// DefaultRoster is the fixed set of agencies synced on every run.
var DefaultRoster = []SourceAccount{
	{Name: "LNS", ID: 2842},
	{Name: "UNS", ID: 36084},
	{Name: "NS", ID: 36082},
}
