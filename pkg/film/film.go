package film

// Movie is a single film as hydrated by the external metadata service.
// The navigation core treats it as immutable and only relies on ID for
// bookkeeping; everything else is carried along for display.
type Movie struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Year            int      `json:"year"`
	PosterURL       string   `json:"poster_url,omitempty"`
	BackdropURL     string   `json:"backdrop_url,omitempty"`
	DominantColor   string   `json:"dominant_color,omitempty"`
	Director        string   `json:"director,omitempty"`
	Cinematographer string   `json:"cinematographer,omitempty"`
	Genres          []string `json:"genres,omitempty"`
}

// QueryContext carries optional hints forwarded verbatim to the recommender.
// All fields may be empty.
type QueryContext struct {
	Cinematographer string `json:"cinematographer,omitempty"`
	Writer          string `json:"writer,omitempty"`
	VisualStyle     string `json:"visual_style,omitempty"`
}
