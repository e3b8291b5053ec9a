package policy

// LeaguePolicy implements AppPolicy for blocking League of Legends and the Riot client.
type LeaguePolicy struct{}

// NewLeaguePolicy creates a new League of Legends blocking policy.
func NewLeaguePolicy() *LeaguePolicy {
	return &LeaguePolicy{}
}

func (p *LeaguePolicy) ID() string {
	return "league"
}

func (p *LeaguePolicy) Name() string {
	return "League of Legends"
}

// Keywords returns the substrings that identify League processes.
// These match LeagueClient, LeagueClientUx, "League of Legends",
// RiotClientServices and the macOS bundle ids (com.riotgames.*).
// "lol" and "riot" are broad on purpose and can hit unrelated apps.
func (p *LeaguePolicy) Keywords() []string {
	return []string{
		"league",
		"lol",
		"riot",
	}
}

// Ensure LeaguePolicy implements AppPolicy.
var _ AppPolicy = (*LeaguePolicy)(nil)
