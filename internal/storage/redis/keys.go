package redis

import (
	"fmt"

	"github.com/mcoot/chessmatch/internal/model"
)

// Key prefix for all chessmatch data
const keyPrefix = "chessmatch"

// userKey returns the Redis key for a User
func userKey(username model.Username) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, username)
}

// usersIndexKey returns the Redis key for the SET of all usernames
func usersIndexKey() string {
	return fmt.Sprintf("%s:idx:users", keyPrefix)
}

// gameKey returns the Redis key for a GameRecord
func gameKey(id model.SessionID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

// userGamesIndexKey returns the Redis key for the ZSET of a user's game keys scored by date
func userGamesIndexKey(username model.Username) string {
	return fmt.Sprintf("%s:idx:user_games:%s", keyPrefix, username)
}
