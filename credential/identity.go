package credential

// Identity names one credential: a provider plus an optional role for
// providers that issue several (a streamer and a bot account).
type Identity struct {
	Provider string
	Role     string
}

// Well-known identities.
var (
	Spotify        = Identity{Provider: "spotify"}
	TwitchStreamer = Identity{Provider: "twitch", Role: "streamer"}
	TwitchBot      = Identity{Provider: "twitch", Role: "bot"}
)

// String renders provider-role, or just the provider without a role.
func (id Identity) String() string {
	if id.Role == "" {
		return id.Provider
	}
	return id.Provider + "-" + id.Role
}
