// Package catalog holds the static action and reward tables.
//
// The built-in tables mirror what the mobile client ships. A TOML file can
// replace either table at startup:
//
//	[[activity]]
//	category = "Transport"
//	name     = "Walked to work"
//	tokens   = 25
//
//	[[reward]]
//	id   = "coffee-discount"
//	cost = 50
package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/greencred/greencred/internal/domain"
)

// ─── Built-in Tables ────────────────────────────────────────────────────────

// DefaultActivities is the canonical category → activity → tokens table.
var DefaultActivities = []domain.Activity{
	{Category: domain.CategoryTransport, Name: "Walked to work", Tokens: 25},
	{Category: domain.CategoryTransport, Name: "Used public transport", Tokens: 20},
	{Category: domain.CategoryTransport, Name: "Biked instead of driving", Tokens: 30},
	{Category: domain.CategoryTransport, Name: "Carpooled", Tokens: 15},
	{Category: domain.CategoryTransport, Name: "Walked/Biked today", Tokens: 25},
	{Category: domain.CategoryTransport, Name: "Sustainable transport used", Tokens: 25},

	{Category: domain.CategoryEnergy, Name: "Used LED lights all day", Tokens: 15},
	{Category: domain.CategoryEnergy, Name: "Unplugged devices when not in use", Tokens: 10},
	{Category: domain.CategoryEnergy, Name: "Used natural light instead of artificial", Tokens: 12},
	{Category: domain.CategoryEnergy, Name: "Set thermostat to eco-mode", Tokens: 18},
	{Category: domain.CategoryEnergy, Name: "Used renewable energy", Tokens: 30},
	{Category: domain.CategoryEnergy, Name: "Energy-saving action taken", Tokens: 30},

	{Category: domain.CategoryWaste, Name: "Recycled plastic bottles", Tokens: 20},
	{Category: domain.CategoryWaste, Name: "Composted organic waste", Tokens: 25},
	{Category: domain.CategoryWaste, Name: "Used reusable bags", Tokens: 10},
	{Category: domain.CategoryWaste, Name: "Avoided single-use plastics", Tokens: 15},
	{Category: domain.CategoryWaste, Name: "Recycled items", Tokens: 20},
	{Category: domain.CategoryWaste, Name: "Waste properly recycled", Tokens: 20},

	{Category: domain.CategoryWater, Name: "Took a shorter shower", Tokens: 15},
	{Category: domain.CategoryWater, Name: "Fixed a leaky faucet", Tokens: 30},
	{Category: domain.CategoryWater, Name: "Collected rainwater", Tokens: 20},
	{Category: domain.CategoryWater, Name: "Used water-efficient appliances", Tokens: 25},

	{Category: domain.CategoryNature, Name: "Planted a tree", Tokens: 50},
	{Category: domain.CategoryNature, Name: "Started a garden", Tokens: 35},
	{Category: domain.CategoryNature, Name: "Planted vegetables in garden", Tokens: 35},
	{Category: domain.CategoryNature, Name: "Participated in cleanup", Tokens: 40},
	{Category: domain.CategoryNature, Name: "Fed birds or wildlife", Tokens: 15},
	{Category: domain.CategoryNature, Name: "Planted something", Tokens: 40},
}

// DefaultRewards is the mock rewards catalog.
var DefaultRewards = []domain.Reward{
	{ID: "coffee-discount", Title: "Free Coffee", Description: "Get a free coffee at participating local cafes", Cost: 50, Category: "Food & Drink"},
	{ID: "plant-kit", Title: "Mini Plant Kit", Description: "Small succulent plant with pot and care instructions", Cost: 120, Category: "Eco Products"},
	{ID: "store-discount", Title: "20% Store Discount", Description: "20% off at eco-friendly partner stores", Cost: 80, Category: "Discounts"},
	{ID: "tree-planting", Title: "Plant a Tree", Description: "We plant a real tree in your name in a reforestation project", Cost: 200, Category: "Environmental"},
	{ID: "eco-bag", Title: "Reusable Eco Bag", Description: "High-quality reusable shopping bag made from recycled materials", Cost: 75, Category: "Eco Products"},
	{ID: "premium-features", Title: "Premium Features", Description: "Unlock advanced tracking and personalized insights", Cost: 300, Category: "App Features"},
}

// ─── Catalog ────────────────────────────────────────────────────────────────

type activityKey struct {
	category domain.Category
	name     string
}

// Catalog is an immutable lookup table. Safe for concurrent reads.
type Catalog struct {
	activities []domain.Activity
	byKey      map[activityKey]domain.Activity
	rewards    []domain.Reward
	byReward   map[string]domain.Reward
}

// New builds a catalog from the given tables, rejecting malformed rows.
func New(activities []domain.Activity, rewards []domain.Reward) (*Catalog, error) {
	c := &Catalog{
		byKey:    make(map[activityKey]domain.Activity, len(activities)),
		byReward: make(map[string]domain.Reward, len(rewards)),
	}

	for _, a := range activities {
		cat, err := domain.ParseCategory(string(a.Category))
		if err != nil {
			return nil, fmt.Errorf("activity %q: %w", a.Name, err)
		}
		a.Category = cat
		a.Name = strings.TrimSpace(a.Name)
		if a.Name == "" {
			return nil, fmt.Errorf("activity in %s: %w", cat, domain.ErrInvalidAction)
		}
		if a.Tokens <= 0 {
			return nil, fmt.Errorf("activity %q: %w", a.Name, domain.ErrInvalidTokenValue)
		}
		k := activityKey{cat, a.Name}
		if _, dup := c.byKey[k]; dup {
			return nil, fmt.Errorf("activity %q listed twice in %s", a.Name, cat)
		}
		c.byKey[k] = a
		c.activities = append(c.activities, a)
	}

	for _, r := range rewards {
		if r.ID == "" {
			return nil, fmt.Errorf("reward %q has empty id", r.Title)
		}
		if r.Cost < 0 {
			return nil, fmt.Errorf("reward %q: %w", r.ID, domain.ErrInvalidCost)
		}
		if _, dup := c.byReward[r.ID]; dup {
			return nil, fmt.Errorf("reward %q listed twice", r.ID)
		}
		c.byReward[r.ID] = r
		c.rewards = append(c.rewards, r)
	}

	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(DefaultActivities, DefaultRewards)
	if err != nil {
		panic("catalog: built-in tables invalid: " + err.Error())
	}
	return c
}

// fileFormat is the on-disk TOML layout.
type fileFormat struct {
	Activities []domain.Activity `toml:"activity"`
	Rewards    []domain.Reward   `toml:"reward"`
}

// Load reads a TOML catalog. Either table may be omitted, in which case the
// built-in one is used.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f fileFormat
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if len(f.Activities) == 0 {
		f.Activities = DefaultActivities
	}
	if len(f.Rewards) == 0 {
		f.Rewards = DefaultRewards
	}
	return New(f.Activities, f.Rewards)
}

// Activity returns the row for (category, name). Name matching is exact after trimming.
func (c *Catalog) Activity(category domain.Category, name string) (domain.Activity, bool) {
	a, ok := c.byKey[activityKey{category, strings.TrimSpace(name)}]
	return a, ok
}

// Activities returns all rows in insertion order.
func (c *Catalog) Activities() []domain.Activity {
	out := make([]domain.Activity, len(c.activities))
	copy(out, c.activities)
	return out
}

// ByCategory returns the rows of one category.
func (c *Catalog) ByCategory(category domain.Category) []domain.Activity {
	var out []domain.Activity
	for _, a := range c.activities {
		if a.Category == category {
			out = append(out, a)
		}
	}
	return out
}

// Reward returns the reward with the given id.
func (c *Catalog) Reward(id string) (domain.Reward, bool) {
	r, ok := c.byReward[id]
	return r, ok
}

// Rewards returns the full reward catalog.
func (c *Catalog) Rewards() []domain.Reward {
	out := make([]domain.Reward, len(c.rewards))
	copy(out, c.rewards)
	return out
}

// RewardCategories returns distinct reward categories, prefixed with "All".
func (c *Catalog) RewardCategories() []string {
	seen := map[string]bool{}
	out := []string{"All"}
	for _, r := range c.rewards {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	return out
}

// RewardsIn filters rewards by category. "All" or "" returns everything.
func (c *Catalog) RewardsIn(category string) []domain.Reward {
	if category == "" || category == "All" {
		return c.Rewards()
	}
	var out []domain.Reward
	for _, r := range c.rewards {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}
