package media

import (
	"net/url"
	"strings"
)

const youtubeEmbedBase = "https://www.youtube.com/embed/"

// EmbedParams are the render parameters handed to the opaque playback engine.
type EmbedParams struct {
	Autoplay bool
	Muted    bool
	Live     bool
}

// BuildEmbedURL converts a source descriptor plus autoplay/mute flags into the
// URL the embedded player frame is loaded with. Unknown providers get the
// flags appended to Ref as query parameters. An empty Ref produces "".
func BuildEmbedURL(src Source, p EmbedParams) string {
	if src.Ref == "" {
		return ""
	}

	q := url.Values{}
	q.Set("autoplay", flag(p.Autoplay))
	q.Set("playsinline", "1")

	var b strings.Builder
	switch strings.ToLower(src.Provider) {
	case "youtube":
		b.WriteString(youtubeEmbedBase)
		b.WriteString(url.PathEscape(src.Ref))
		q.Set("mute", flag(p.Muted))
		q.Set("rel", "0")
		if p.Live {
			q.Set("controls", "0")
		}
	default:
		b.WriteString(src.Ref)
		q.Set("muted", flag(p.Muted))
		if p.Live {
			q.Set("live", "1")
		}
	}

	if strings.Contains(b.String(), "?") {
		b.WriteString("&")
	} else {
		b.WriteString("?")
	}
	b.WriteString(q.Encode())
	return b.String()
}

func flag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
