package domain

// EntityType identifica una colección del Entity Store.
type EntityType string

const (
	EntityUser     EntityType = "user"
	EntityVideo    EntityType = "video"
	EntityComment  EntityType = "comment"
	EntityTweet    EntityType = "tweet"
	EntityPlaylist EntityType = "playlist"
)

// Valid reporta si el tipo es conocido.
func (t EntityType) Valid() bool {
	switch t {
	case EntityUser, EntityVideo, EntityComment, EntityTweet, EntityPlaylist:
		return true
	}
	return false
}

// Entity es cualquier registro persistido en el Entity Store.
type Entity interface {
	EntityID() string
	EntityType() EntityType
}
