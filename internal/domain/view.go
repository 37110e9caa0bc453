package domain

// ChannelProfile es la vista de un canal para un espectador.
type ChannelProfile struct {
	Profile          PublicProfile `json:"profile"`
	SubscribersCount int64         `json:"subscribers_count"`
	SubscribedCount  int64         `json:"channels_subscribed_to_count"`
	IsSubscribed     bool          `json:"is_subscribed"`
}

// VideoEngagement es un video con sus likes y el flag del espectador.
type VideoEngagement struct {
	Video      Video         `json:"video"`
	Owner      PublicProfile `json:"owner"`
	LikesCount int64         `json:"likes_count"`
	IsLiked    bool          `json:"is_liked"`
}

// ChannelStats son agregados públicos del dueño; todo cero si no hay datos.
type ChannelStats struct {
	TotalVideos      int64 `json:"total_videos"`
	TotalViews       int64 `json:"total_views"`
	TotalLikes       int64 `json:"total_likes"`
	TotalSubscribers int64 `json:"total_subscribers"`
}

// PlaylistView es una playlist con los videos que el espectador puede ver.
type PlaylistView struct {
	Playlist    Playlist      `json:"playlist"`
	Owner       PublicProfile `json:"owner"`
	Videos      []Video       `json:"videos"`
	TotalVideos int64         `json:"total_videos"`
	TotalViews  int64         `json:"total_views"`
}

// SubscriberCount es el único dato público sobre los suscriptores de un canal.
type SubscriberCount struct {
	ChannelID        string `json:"channel_id"`
	SubscribersCount int64  `json:"subscribers_count"`
}
