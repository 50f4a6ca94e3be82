package generation

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
)

// MaxSeedLen is the maximum length of a user-supplied seed idea, in runes.
const MaxSeedLen = 40

// StartingRating is the Elo rating every new catalog entry opens with.
const StartingRating = 1500

// StyleIllustration is the softest style register. Safety rejections retry
// once with this style before giving up.
const StyleIllustration = "illustration"

// animals is the character roster of the corpus.
var animals = map[string]string{
	"bear":  "a large brown bear",
	"hippo": "a rotund hippopotamus",
	"lion":  "a lion with a magnificent mane",
	"panda": "a giant panda",
	"whale": "a small whale hovering gently above the ground",
}

// IsSupportedAnimal reports whether id names a character in the roster.
func IsSupportedAnimal(id string) bool {
	_, ok := animals[id]
	return ok
}

// styleOrder is deterministic so seed-based rotation is stable across restarts.
var styleOrder = []string{"cgi", "claymation", "handdrawn", "puppet", "stopmotion"}

var styleDescriptions = map[string]string{
	"claymation":      "The style is claymation like Aardman studios, with smooth clay textures, visible fingerprints, slightly exaggerated proportions, and warm tactile charm.",
	"stopmotion":      "The style is stop-motion animation reminiscent of Wes Anderson films, with symmetrical framing, muted pastel colors, visible textile textures on fur, and meticulous handcrafted detail.",
	"puppet":          "The style is practical puppet like Jim Henson productions, a sophisticated animatronic character filmed on real sets, mechanical expressiveness, fabric textures, and theatrical warmth.",
	"cgi":             "The style is photorealistic CGI like the Paddington films, seamlessly composited into live-action backgrounds, incredibly detailed fur, expressive eyes, and cinematic lighting.",
	"handdrawn":       "The style is hand-drawn 2D animation composited into live-action photography like Who Framed Roger Rabbit, with expressive ink lines, watercolor washes, and a slightly sketchy luminous quality.",
	StyleIllustration: "The style is a gentle storybook illustration, soft watercolor washes, simple rounded shapes, muted warm colors, nothing photographic or unsettling.",
}

// styleFor picks a style for the request, rotated deterministically by seed so
// retries of the same idea land on the same style.
func styleFor(animalID, seed string) string {
	h := fnv.New32a()
	h.Write([]byte(animalID))
	h.Write([]byte(seed))
	return styleOrder[h.Sum32()%uint32(len(styleOrder))]
}

// composePrompt builds the final image prompt from the enhanced scene text and
// a style modifier.
func composePrompt(animalID, enhanced, style string) string {
	return fmt.Sprintf("%s\n\nThe main character is %s wearing Nutcracker-inspired clothing, evoking a faded holiday ballet aesthetic.\n\n%s",
		enhanced, animals[animalID], styleDescriptions[style])
}

// Asset is a generated binary returned by the image collaborator.
type Asset struct {
	Data     []byte
	MIMEType string
	Caption  string
}

// StoredAsset is a persisted binary addressable by signed URL.
type StoredAsset struct {
	ID        uuid.UUID
	SignedURL string
}

// CatalogEntry is the ranked-catalog record created for every completed
// generation.
type CatalogEntry struct {
	ID        uuid.UUID
	Animal    string
	Seed      string
	Prompt    string
	Style     string
	AssetID   uuid.UUID
	Rating    int
	CreatedBy uuid.UUID
	CreatedAt time.Time
}

// Enhancer expands a short user idea into a full scene description.
type Enhancer interface {
	EnhanceText(ctx context.Context, prompt string) (string, error)
}

// Generator produces an image for a prompt.
type Generator interface {
	GenerateAsset(ctx context.Context, prompt string) (*Asset, error)
}

// AssetStore persists generated binaries and hands back a signed URL.
type AssetStore interface {
	Store(ctx context.Context, data []byte, mimeType string) (*StoredAsset, error)
}

// Catalog records completed generations for ranking.
type Catalog interface {
	UpsertEntry(ctx context.Context, entry *CatalogEntry) error
}

// Result is what a completed generation returns to the API layer.
type Result struct {
	AssetURL  string `json:"asset_url"`
	Caption   string `json:"caption,omitempty"`
	Remaining int    `json:"remaining"`
}
