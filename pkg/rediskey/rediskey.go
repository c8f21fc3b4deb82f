package rediskey

import "fmt"

// Key prefixes shared by every process that talks to the same redis.
const (
	LeaderboardPrefix = "leaderboard:campaign"
	SequencePrefix    = "seq"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildLeaderboardKey returns "leaderboard:campaign:{campaignID}"
func BuildLeaderboardKey(campaignID string) string {
	return NamespaceKey(LeaderboardPrefix, campaignID)
}

// BuildSequenceKey returns "seq:{kind}:{day}"
func BuildSequenceKey(kind, day string) string {
	return NamespaceKey(SequencePrefix, NamespaceKey(kind, day))
}
