package pipeline

// RunStats tracks aggregate counters across one augmentation stage run.
type RunStats struct {
	RunID   string
	Total   int
	Current int

	Succeeded   int
	Failed      int
	NotFound    int
	FilteredOut int // Duration filter (> max duration).
	Skipped     int // Non-.wav or unsafe manifest filename.

	TotalOutputBytes int64
}

// ConvertStats tracks aggregate counters across a convert stage run.
type ConvertStats struct {
	RunID   string
	Total   int
	Current int

	Kept        int
	FilteredOut int // Converted fine but longer than the duration threshold.
	Failed      int

	TotalOutputBytes int64
}
