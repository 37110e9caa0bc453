package domain

import "time"

type Video struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	VideoURL    string    `json:"video_url"`
	Thumbnail   string    `json:"thumbnail_url"`
	MediaID     string    `json:"-"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	Published   bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
}

func (v Video) EntityID() string       { return v.ID }
func (v Video) EntityType() EntityType { return EntityVideo }

type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	OwnerID   string    `json:"owner_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Comment) EntityID() string       { return c.ID }
func (c Comment) EntityType() EntityType { return EntityComment }

type Tweet struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (t Tweet) EntityID() string       { return t.ID }
func (t Tweet) EntityType() EntityType { return EntityTweet }

type Playlist struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	VideoIDs    []string  `json:"video_ids"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p Playlist) EntityID() string       { return p.ID }
func (p Playlist) EntityType() EntityType { return EntityPlaylist }
