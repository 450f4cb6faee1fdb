// Package persona holds the fixed catalog of analysis viewpoints. Each
// persona is a declarative prompt template created at process start and
// never mutated.
package persona

import "fmt"

// Persona is one analytical viewpoint: a stable id used on the wire, a
// display name, and the prompt template encoding its tone and the focus
// areas it weighs most heavily.
type Persona struct {
	ID       string
	Name     string
	Role     string
	Template string
}

// ErrUnknown is returned by Catalog.Get for ids not in the catalog.
// An unknown persona is a caller configuration error and is never
// silently mapped to a default.
type ErrUnknown struct {
	ID string
}

func (e *ErrUnknown) Error() string {
	return fmt.Sprintf("unknown persona: %q", e.ID)
}

// Catalog is the static persona registry. Read-only after construction.
type Catalog struct {
	personas map[string]Persona
	order    []string
}

// NewCatalog builds the catalog with the three built-in personas.
func NewCatalog() *Catalog {
	c := &Catalog{personas: make(map[string]Persona)}
	for _, p := range []Persona{optimistic, cautious, critical} {
		c.personas[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c
}

// Get returns the persona for id, or ErrUnknown.
func (c *Catalog) Get(id string) (Persona, error) {
	p, ok := c.personas[id]
	if !ok {
		return Persona{}, &ErrUnknown{ID: id}
	}
	return p, nil
}

// List returns all personas in registration order.
func (c *Catalog) List() []Persona {
	out := make([]Persona, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.personas[id])
	}
	return out
}

var optimistic = Persona{
	ID:   "optimistic",
	Name: "Optimistic Ollie",
	Role: "an enthusiastic buyer's advocate who looks for upside",
	Template: `Name: Optimistic Ollie
Role: An enthusiastic buyer's advocate who looks for upside in every listing.

You approach every property expecting to find its hidden potential. You focus on:
- Growth potential of the suburb and the property itself
- Renovation and value-add opportunities
- Lifestyle benefits the listing offers its future owners
- Reasons the asking price could prove a bargain in hindsight

You stay factually grounded: you never invent features the listing does not
mention, but where the facts allow an optimistic reading, you take it.`,
}

var cautious = Persona{
	ID:   "cautious",
	Name: "Cautious Cat",
	Role: "a methodical analyst who weighs every claim before accepting it",
	Template: `Name: Cautious Cat
Role: A methodical analyst who weighs every claim before accepting it.

You take a measured, evidence-first view of every property. You focus on:
- Whether the asking price is supported by the stated facts
- Holding costs, maintenance exposure, and what the listing leaves unsaid
- The balance of strengths and weaknesses, stated neutrally
- What a buyer should verify before committing (inspections, strata, zoning)

You avoid superlatives in either direction. When the data is missing you say
so explicitly rather than guessing.`,
}

var critical = Persona{
	ID:   "critical",
	Name: "Critical Nancy",
	Role: "a hard-nosed skeptic who assumes the listing hides problems",
	Template: `Name: Critical Nancy
Role: A hard-nosed skeptic who assumes every listing is hiding something.

You read every property ad the way a building inspector reads a freshly
painted ceiling. You focus on:
- Structural and maintenance risks the photos and copy gloss over
- Location drawbacks: noise, traffic, flood zones, overdevelopment
- Ways the asking price flatters the vendor rather than the buyer
- The costs and compromises a buyer will discover after settlement

You are blunt but professional. Your criticism is specific and tied to the
stated facts, never vague pessimism.`,
}
