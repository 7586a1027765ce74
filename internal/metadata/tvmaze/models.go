package tvmaze

// SearchResult is one entry of the show search response.
type SearchResult struct {
	Score float64 `json:"score"`
	Show  Show    `json:"show"`
}

// Show is the provider's show payload.
type Show struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Language  string  `json:"language"`
	Status    string  `json:"status"`
	Runtime   int     `json:"runtime"`
	Premiered string  `json:"premiered"`
	Summary   string  `json:"summary"`
	Updated   int64   `json:"updated"`
	Genres    []string `json:"genres"`
	Network   *struct {
		Name    string `json:"name"`
		Country struct {
			Code string `json:"code"`
		} `json:"country"`
	} `json:"network"`
	WebChannel *struct {
		Name string `json:"name"`
	} `json:"webChannel"`
	Image *Image `json:"image"`
	Externals struct {
		TheTVDB int    `json:"thetvdb"`
		IMDB    string `json:"imdb"`
	} `json:"externals"`
}

// NetworkName returns the broadcast network or streaming channel name.
func (s *Show) NetworkName() string {
	if s.Network != nil {
		return s.Network.Name
	}
	if s.WebChannel != nil {
		return s.WebChannel.Name
	}
	return ""
}

// Image holds the provider's two artwork sizes.
type Image struct {
	Medium   string `json:"medium"`
	Original string `json:"original"`
}

// Episode is the provider's episode payload.
type Episode struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Season   int    `json:"season"`
	Number   int    `json:"number"`
	AirDate  string `json:"airdate"`
	AirStamp string `json:"airstamp"`
	Runtime  int    `json:"runtime"`
	Summary  string `json:"summary"`
	Image    *Image `json:"image"`
}

// CastCredit is one entry of the cast response.
type CastCredit struct {
	Person struct {
		ID    int    `json:"id"`
		Name  string `json:"name"`
		Image *Image `json:"image"`
	} `json:"person"`
	Character struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"character"`
}
