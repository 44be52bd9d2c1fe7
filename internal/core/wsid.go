package core

import (
	"fmt"
	"math/rand"
)

// Word lists for human-memorable workspace identifiers. The generator pairs
// one adjective with one animal, e.g. "agile-falcon".
var wsAdjectives = []string{
	"agile", "amber", "bold", "brave", "bright", "calm", "clever", "crimson",
	"daring", "deft", "eager", "fleet", "gentle", "golden", "hardy", "humble",
	"keen", "lively", "lucid", "merry", "mellow", "nimble", "noble", "plucky",
	"proud", "quick", "quiet", "rapid", "rustic", "sage", "sharp", "silent",
	"sleek", "spry", "steady", "stout", "swift", "tidy", "vivid", "wise",
}

var wsAnimals = []string{
	"badger", "beaver", "bison", "condor", "coyote", "crane", "dingo",
	"falcon", "ferret", "finch", "gecko", "heron", "ibex", "jackal", "koala",
	"lemur", "lynx", "macaw", "marmot", "marten", "mole", "moose", "newt",
	"ocelot", "osprey", "otter", "owl", "panda", "petrel", "puffin", "quokka",
	"raven", "robin", "shrew", "stoat", "swift", "tapir", "vole", "walrus",
	"wombat",
}

// WorkspaceIDGenerator produces collision-free two-word workspace
// identifiers against a caller-supplied set of already-known ids.
type WorkspaceIDGenerator interface {
	Generate(existing map[string]struct{}) string
}

type wordPairGenerator struct {
	rng *rand.Rand
}

// NewWorkspaceIDGenerator creates a generator seeded from the given source.
// Pass rand.NewSource(time.Now().UnixNano()) outside of tests.
func NewWorkspaceIDGenerator(src rand.Source) WorkspaceIDGenerator {
	return &wordPairGenerator{rng: rand.New(src)}
}

// Generate returns an adjective-animal slug not present in existing. It
// retries random combinations up to the product of the two word-list sizes;
// if every attempt collides it appends a short random numeric suffix, which
// bounds the worst case to a fixed number of tries rather than an infinite
// loop.
func (g *wordPairGenerator) Generate(existing map[string]struct{}) string {
	maxTries := len(wsAdjectives) * len(wsAnimals)
	var candidate string
	for i := 0; i < maxTries; i++ {
		candidate = wsAdjectives[g.rng.Intn(len(wsAdjectives))] + "-" +
			wsAnimals[g.rng.Intn(len(wsAnimals))]
		if _, taken := existing[candidate]; !taken {
			return candidate
		}
	}
	// Exhausted: guarantee termination with a numeric suffix.
	return fmt.Sprintf("%s-%04d", candidate, g.rng.Intn(10000))
}

// BranchForWorkspace derives the deterministic branch name for a workspace id.
func BranchForWorkspace(id string) string {
	return "warren/" + id
}
