package tmdb

// FindResponse is the external-id lookup response.
type FindResponse struct {
	TVResults    []SeriesResult `json:"tv_results"`
	MovieResults []MovieResult  `json:"movie_results"`
}

// SearchSeriesResponse is the series search response.
type SearchSeriesResponse struct {
	Page         int            `json:"page"`
	Results      []SeriesResult `json:"results"`
	TotalResults int            `json:"total_results"`
}

// SeriesResult is one series entry of a search or find response.
type SeriesResult struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	OriginalName string  `json:"original_name"`
	Overview     string  `json:"overview"`
	FirstAirDate string  `json:"first_air_date"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Popularity   float64 `json:"popularity"`
	VoteCount    int     `json:"vote_count"`
}

// SeriesDetails is the full series payload.
type SeriesDetails struct {
	ID               int      `json:"id"`
	Name             string   `json:"name"`
	Overview         string   `json:"overview"`
	FirstAirDate     string   `json:"first_air_date"`
	PosterPath       string   `json:"poster_path"`
	BackdropPath     string   `json:"backdrop_path"`
	NumberOfSeasons  int      `json:"number_of_seasons"`
	NumberOfEpisodes int      `json:"number_of_episodes"`
	Status           string   `json:"status"`
	OriginalLanguage string   `json:"original_language"`
	Languages        []string `json:"languages"`
	ExternalIDs      *struct {
		IMDBID string `json:"imdb_id"`
		TVDBID int    `json:"tvdb_id"`
	} `json:"external_ids"`
	Credits *Credits `json:"credits"`
}

// SeasonDetails is the per-season payload with episode overviews.
type SeasonDetails struct {
	ID           int             `json:"id"`
	SeasonNumber int             `json:"season_number"`
	Name         string          `json:"name"`
	Overview     string          `json:"overview"`
	Episodes     []EpisodeDetail `json:"episodes"`
}

// EpisodeDetail is one episode of a season payload.
type EpisodeDetail struct {
	ID            int    `json:"id"`
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	AirDate       string `json:"air_date"`
	Runtime       int    `json:"runtime"`
	StillPath     string `json:"still_path"`
}

// MovieResult is one movie entry of a search or find response.
type MovieResult struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Popularity   float64 `json:"popularity"`
	VoteCount    int     `json:"vote_count"`
}

// SearchMoviesResponse is the movie search response.
type SearchMoviesResponse struct {
	Page         int           `json:"page"`
	Results      []MovieResult `json:"results"`
	TotalResults int           `json:"total_results"`
}

// MovieDetails is the full movie payload.
type MovieDetails struct {
	ID           int      `json:"id"`
	IMDBID       string   `json:"imdb_id"`
	Title        string   `json:"title"`
	Overview     string   `json:"overview"`
	ReleaseDate  string   `json:"release_date"`
	Runtime      int      `json:"runtime"`
	PosterPath   string   `json:"poster_path"`
	BackdropPath string   `json:"backdrop_path"`
	Status       string   `json:"status"`
	Credits      *Credits `json:"credits"`
}

// Credits holds the cast of a series or movie.
type Credits struct {
	Cast []CastCredit `json:"cast"`
}

// CastCredit is one cast entry.
type CastCredit struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}
