package identity

import (
	"regexp"
	"strconv"
	"strings"

	"mediavault/pkg/models"
)

// playablePattern matches URLs whose path ends in a known media
// extension, i.e. URLs we expect to resolve to an actual payload
// rather than a wrapper page.
var playablePattern = regexp.MustCompile(`(?i)\.(mp4|webm|mov|m4v|jpe?g|png|gif|webp)(\?|$)`)

// labelPattern parses named resolution labels like "720p" or "1080P".
var labelPattern = regexp.MustCompile(`^(\d{3,4})[pP]$`)

// Resolve merges two colliding records into one canonical record.
// It is pure: no network, no storage, inputs are not mutated.
//
// Winner selection, in order:
//  1. the record whose canonical URL looks like a playable payload;
//  2. the record with the later CreatedAt.
//
// Fields absent on the winner are backfilled from the loser; quality
// hints keep whichever side implies the higher resolution.
func Resolve(existing *models.MediaRecord, incoming models.MediaRecord) models.MediaRecord {
	if existing == nil {
		return incoming
	}

	winner, loser := *existing, incoming
	if prefer(incoming, *existing) {
		winner, loser = incoming, *existing
	}

	if winner.PrimaryID == "" {
		winner.PrimaryID = loser.PrimaryID
	}
	if winner.ContentID == "" {
		winner.ContentID = loser.ContentID
	}
	if winner.GroupKey == "" {
		winner.GroupKey = loser.GroupKey
	}
	if winner.ThumbURL == "" {
		winner.ThumbURL = loser.ThumbURL
	}
	if winner.CreatedAt == 0 {
		winner.CreatedAt = loser.CreatedAt
	}

	// union of alternates, loser's canonical included so no URL is lost
	alts := make([]string, 0, len(winner.AlternateURLs)+len(loser.AlternateURLs)+1)
	alts = append(alts, winner.AlternateURLs...)
	for _, u := range loser.AlternateURLs {
		alts = appendIfMissing(alts, u)
	}
	if loser.CanonicalURL != "" && loser.CanonicalURL != winner.CanonicalURL {
		alts = appendIfMissing(alts, loser.CanonicalURL)
	}
	winner.AlternateURLs = alts

	if hintHeight(loser.Quality) > hintHeight(winner.Quality) {
		winner.Quality = loser.Quality
	} else if winner.Quality.Empty() {
		winner.Quality = loser.Quality
	}

	return winner
}

// prefer reports whether a should win over b.
func prefer(a, b models.MediaRecord) bool {
	ap, bp := Playable(a.CanonicalURL), Playable(b.CanonicalURL)
	if ap != bp {
		return ap
	}
	return a.CreatedAt > b.CreatedAt
}

// Playable reports whether the URL matches the expected media-type
// pattern for a directly fetchable payload.
func Playable(rawURL string) bool {
	return playablePattern.MatchString(rawURL)
}

// hintHeight reduces a hint set to a comparable pixel height: a named
// label parsed when possible, otherwise max(width, height).
func hintHeight(q models.QualityHints) int {
	if m := labelPattern.FindStringSubmatch(strings.TrimSpace(q.Label)); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if q.Width > q.Height {
		return q.Width
	}
	return q.Height
}

func appendIfMissing(slice []string, v string) []string {
	for _, x := range slice {
		if x == v {
			return slice
		}
	}
	return append(slice, v)
}
