package watchdog

// FakeFeeder counts feeds for tests.
type FakeFeeder struct {
	// Feeds counts Feed calls.
	Feeds int

	// Closed tracks if Close was called.
	Closed bool

	// FeedError, if set, is returned by Feed.
	FeedError error
}

// NewFakeFeeder creates a FakeFeeder.
func NewFakeFeeder() *FakeFeeder {
	return &FakeFeeder{}
}

// Feed counts the call.
func (f *FakeFeeder) Feed() error {
	if f.FeedError != nil {
		return f.FeedError
	}
	f.Feeds++
	return nil
}

// Close marks the feeder as closed.
func (f *FakeFeeder) Close() error {
	f.Closed = true
	return nil
}
