package traktsync

// TokenResponse represents the response from /oauth/token.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	CreatedAt    int64  `json:"created_at"`
}

// IDs holds external identifiers for a media item.
type IDs struct {
	Trakt int    `json:"trakt,omitempty"`
	Slug  string `json:"slug,omitempty"`
	IMDB  string `json:"imdb,omitempty"`
	TMDB  int    `json:"tmdb,omitempty"`
	TVDB  int    `json:"tvdb,omitempty"`
}

// Show represents a remote TV show.
type Show struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	IDs   IDs    `json:"ids"`
}

// Movie represents a remote movie.
type Movie struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	IDs   IDs    `json:"ids"`
}

// WatchedShow is one entry of /sync/watched/shows.
type WatchedShow struct {
	Plays         int             `json:"plays"`
	LastWatchedAt string          `json:"last_watched_at"`
	Show          Show            `json:"show"`
	Seasons       []WatchedSeason `json:"seasons"`
}

// WatchedSeason holds per-episode play data of one season.
type WatchedSeason struct {
	Number   int              `json:"number"`
	Episodes []WatchedEpisode `json:"episodes"`
}

// WatchedEpisode is one watched episode entry.
type WatchedEpisode struct {
	Number        int    `json:"number"`
	Plays         int    `json:"plays"`
	LastWatchedAt string `json:"last_watched_at"`
}

// WatchedMovie is one entry of /sync/watched/movies.
type WatchedMovie struct {
	Plays         int    `json:"plays"`
	LastWatchedAt string `json:"last_watched_at"`
	Movie         Movie  `json:"movie"`
}

// SyncHistoryRequest represents the request body for /sync/history.
type SyncHistoryRequest struct {
	Movies []SyncMovie `json:"movies,omitempty"`
	Shows  []SyncShow  `json:"shows,omitempty"`
}

// SyncMovie represents a movie to add to history.
type SyncMovie struct {
	Title     string  `json:"title,omitempty"`
	WatchedAt string  `json:"watched_at,omitempty"`
	IDs       SyncIDs `json:"ids"`
}

// SyncShow represents a show with episodes to add to history.
type SyncShow struct {
	Title   string       `json:"title,omitempty"`
	IDs     SyncIDs      `json:"ids"`
	Seasons []SyncSeason `json:"seasons,omitempty"`
}

// SyncSeason represents a season with episodes.
type SyncSeason struct {
	Number   int           `json:"number"`
	Episodes []SyncEpisode `json:"episodes,omitempty"`
}

// SyncEpisode represents an episode to add to history.
type SyncEpisode struct {
	Number    int    `json:"number"`
	WatchedAt string `json:"watched_at,omitempty"`
}

// SyncIDs holds ids for sync operations.
type SyncIDs struct {
	Trakt int    `json:"trakt,omitempty"`
	IMDB  string `json:"imdb,omitempty"`
	TMDB  int    `json:"tmdb,omitempty"`
	TVDB  int    `json:"tvdb,omitempty"`
}

// SyncHistoryResponse represents the response from /sync/history.
type SyncHistoryResponse struct {
	Added struct {
		Movies   int `json:"movies"`
		Episodes int `json:"episodes"`
	} `json:"added"`
	NotFound struct {
		Movies []SyncMovie `json:"movies"`
		Shows  []SyncShow  `json:"shows"`
	} `json:"not_found"`
}
