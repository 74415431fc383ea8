package synth

import "time"

// Default generator settings.
const (
	defaultSeed        = 1
	defaultHours       = 48
	defaultUsers       = 200
	defaultInfluencers = 3
	defaultRepos       = 20
	defaultBaseRate    = 3
	defaultBurst       = 30
	defaultInfluence   = 4
	followProbability  = 0.6
	casualFollows      = 2
	influencerAfter    = 4 * time.Hour
	burstSpan          = 6 * time.Hour
	pushesPerRepo      = 5
)

// Config controls the shape of a generated archive.
type Config struct {
	Seed        int64     // same seed, same bytes
	Start       time.Time // first timestamp, UTC
	Hours       int       // archive span
	Users       int       // ordinary users
	Influencers int       // heavily-followed users
	Repos       int
	Languages   []string
	BaseRate    int // background watches per repository per hour, on average
	Burst       int // watches following each influencer watch
	Influence   int // repositories each influencer watches
}

// DefaultConfig returns a small archive spanning two days of March 2012.
func DefaultConfig() Config {
	return Config{
		Seed:        defaultSeed,
		Start:       time.Date(2012, 3, 11, 0, 0, 0, 0, time.UTC),
		Hours:       defaultHours,
		Users:       defaultUsers,
		Influencers: defaultInfluencers,
		Repos:       defaultRepos,
		Languages:   []string{"Go", "Python", "JavaScript", "Ruby"},
		BaseRate:    defaultBaseRate,
		Burst:       defaultBurst,
		Influence:   defaultInfluence,
	}
}

// Stats counts generated records.
type Stats struct {
	Events  int
	Follows int
	Watches int
	Pushes  int
}
