package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/leonelquinteros/gotext"
	"github.com/sirupsen/logrus"

	"terminus-realm/mapgen/fill"
	"terminus-realm/mapgen/grid"
	"terminus-realm/mapgen/logger"
	"terminus-realm/mapgen/models"
	"terminus-realm/mapgen/random"
	"terminus-realm/mapgen/zones"
)

const (
	// DefaultMaxRetries is how many reseeded reruns a generator attempts
	DefaultMaxRetries = 10

	MinMapSize = 5
	MaxMapSize = 252
	MaxPlayers = 8
)

// Default header texts used when the options leave them empty
const (
	DefaultVictory = "Defeat all enemies"
	DefaultLoss    = "Lose all your towns and heroes"
)

// GenerationOptions are the user settings of one map
type GenerationOptions struct {
	Width       int
	Height      int
	Underground bool
	Players     int
	Difficulty  models.Difficulty
	Template    *zones.Template
	Victory     string
	Loss        string
}

// Validate checks the options before any work is done
func (o GenerationOptions) Validate() error {
	if o.Width < MinMapSize || o.Width > MaxMapSize || o.Height < MinMapSize || o.Height > MaxMapSize {
		return models.NewGenerationError(models.FailureInvalidInput,
			"map size %dx%d outside %d..%d", o.Width, o.Height, MinMapSize, MaxMapSize)
	}
	if o.Players < 1 || o.Players > MaxPlayers {
		return models.NewGenerationError(models.FailureInvalidInput,
			"%d players, expected 1..%d", o.Players, MaxPlayers)
	}
	if o.Difficulty < models.DifficultyEasy || o.Difficulty > models.DifficultyImpossible {
		return models.NewGenerationError(models.FailureInvalidInput, "unknown difficulty %d", int(o.Difficulty))
	}
	return o.Template.Validate(o.Players)
}

func (o GenerationOptions) levels() int {
	if o.Underground {
		return 2
	}
	return 1
}

// Option configures a MapGenerator
type Option func(*MapGenerator)

// WithRetries bounds the number of reseeded reruns after a retryable failure
func WithRetries(n int) Option {
	return func(g *MapGenerator) {
		if n >= 0 {
			g.maxRetries = n
		}
	}
}

// WithContent replaces the zone content algorithm
func WithContent(factory fill.ContentFactory) Option {
	return func(g *MapGenerator) {
		g.content = factory
	}
}

// WithPlacementAttempts bounds the candidate draws per zone centre
func WithPlacementAttempts(n int) Option {
	return func(g *MapGenerator) {
		g.placementAttempts = n
	}
}

// MapGenerator turns options and a seed into a finished map. A generator
// owns no state between calls; every Generate starts from an empty grid.
type MapGenerator struct {
	options           GenerationOptions
	seed              int64
	maxRetries        int
	content           fill.ContentFactory
	placementAttempts int
}

// NewMapGenerator creates a generator for opts seeded with seed
func NewMapGenerator(opts GenerationOptions, seed int64, options ...Option) *MapGenerator {
	g := &MapGenerator{
		options:    opts,
		seed:       seed,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// NewMapGeneratorFromClock creates a generator seeded from the current time
func NewMapGeneratorFromClock(opts GenerationOptions, options ...Option) *MapGenerator {
	return NewMapGenerator(opts, time.Now().UnixNano(), options...)
}

// Seed returns the seed of the first attempt
func (g *MapGenerator) Seed() int64 {
	return g.seed
}

// Generate builds the map. Placement and connection failures rerun the
// whole pipeline with a derived seed; any other failure is returned as is.
// The returned map records the seed of the attempt that produced it.
func (g *MapGenerator) Generate() (*models.GameMap, error) {
	if err := g.options.Validate(); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		seed := random.Derive(g.seed, attempt)
		log := logger.Log.WithFields(logrus.Fields{
			"seed":     seed,
			"attempt":  attempt,
			"template": g.options.Template.Name,
		})

		m, err := g.newRun(seed).generate()
		if err == nil {
			log.WithField("zones", len(m.Zones)).Info("Map generated")
			return m, nil
		}

		var ge *models.GenerationError
		if !errors.As(err, &ge) || !ge.Retryable() {
			log.WithError(err).Error("Map generation failed")
			return nil, err
		}
		log.WithError(err).Warn("Generation attempt failed, retrying with a new seed")
		lastErr = err
	}

	return nil, fmt.Errorf("failed to generate map after %d attempts: %w", g.maxRetries+1, lastErr)
}

// run is the state of one generation attempt
type run struct {
	gen         *MapGenerator
	opts        GenerationOptions
	seed        int64
	rng         *random.Service
	grid        *grid.Grid
	graph       *zones.Graph
	connections []models.ConnectionInfo
	m           *models.GameMap
}

func (g *MapGenerator) newRun(seed int64) *run {
	return &run{
		gen:  g,
		opts: g.options,
		seed: seed,
		rng:  random.New(seed),
		m:    &models.GameMap{},
	}
}

func (r *run) generate() (*models.GameMap, error) {
	r.initTiles()
	if err := r.genZones(); err != nil {
		return nil, err
	}
	if err := r.fillZones(); err != nil {
		return nil, err
	}
	if err := r.addPlayerInfo(); err != nil {
		return nil, err
	}
	r.addHeaderInfo()
	return r.m, nil
}

func (r *run) initTiles() {
	r.grid = grid.New(r.opts.Width, r.opts.Height, r.opts.levels())
	policy := grid.EdgePolicy(r.opts.Width, r.opts.Height)
	if density := r.opts.Template.Obstacles; density > 0 {
		policy = grid.RockPolicy(policy, r.rng.Int63(), density)
	}
	r.grid.Init(policy)

	logger.Log.WithFields(logrus.Fields{
		"seed":    r.seed,
		"stage":   "init",
		"free":    r.grid.Count(grid.Free),
		"blocked": r.grid.Count(grid.Blocked),
	}).Debug("Tiles initialised")
}

func (r *run) genZones() error {
	b := zones.NewBuilder(r.grid, r.rng)
	if r.gen.placementAttempts > 0 {
		b.SetMaxAttempts(r.gen.placementAttempts)
	}
	graph, err := b.Build(r.opts.Template)
	if err != nil {
		return err
	}
	r.graph = graph
	return nil
}

func (r *run) fillZones() error {
	conns, err := fill.NewPipeline(r.grid, r.graph, r.rng, r.gen.content).Run()
	if err != nil {
		return err
	}
	r.connections = conns
	return nil
}

// addPlayerInfo gives every player the lowest-id zone they own as start zone
func (r *run) addPlayerInfo() error {
	r.m.Players = make([]models.PlayerInfo, 0, r.opts.Players)
	for player := 0; player < r.opts.Players; player++ {
		owned := r.graph.OwnedBy(player)
		if len(owned) == 0 {
			return models.NewGenerationError(models.FailureInvalidInput, "player %d owns no zone", player)
		}
		start := owned[0]
		if r.grid.Owner(start.Center) != start.ID {
			return models.NewGenerationError(models.FailureIllegalTransition,
				"start tile %v of player %d is not in zone %d", start.Center, player, start.ID)
		}

		ids := make([]int, len(owned))
		for i, z := range owned {
			ids[i] = z.ID
		}
		r.m.Players = append(r.m.Players, models.PlayerInfo{
			Player:    player,
			StartZone: start.ID,
			Start:     start.Center,
			Zones:     ids,
		})
	}
	return nil
}

func (r *run) addHeaderInfo() {
	m := r.m
	m.Template = r.opts.Template.Name
	m.Seed = r.seed
	m.Difficulty = r.opts.Difficulty
	m.Width = r.grid.Width()
	m.Height = r.grid.Height()
	m.Depth = r.grid.Levels()
	m.Name = gotext.Get("Random map %dx%d (%s)", m.Width, m.Height, m.Template)
	m.Description = r.description()

	m.Victory = r.opts.Victory
	if m.Victory == "" {
		m.Victory = gotext.Get(DefaultVictory)
	}
	m.Loss = r.opts.Loss
	if m.Loss == "" {
		m.Loss = gotext.Get(DefaultLoss)
	}

	m.Tiles = r.grid.Terrains()
	m.Owners = r.grid.Owners()
	m.Connections = r.connections
	for _, z := range r.graph.Zones() {
		m.Zones = append(m.Zones, models.ZoneInfo{
			ID:      z.ID,
			Owner:   z.Owner,
			Terrain: z.Terrain,
			Center:  z.Center,
			Target:  z.Target,
			Size:    z.Size(),
		})
	}
}

func (r *run) description() string {
	levels := gotext.Get("surface only")
	if r.opts.Underground {
		levels = gotext.Get("surface and underground")
	}
	return gotext.Get("Map created by the random map generator.\nTemplate was %s, seed was %d, size %dx%d, levels: %s, players %d, difficulty %s.",
		r.opts.Template.Name, r.seed, r.opts.Width, r.opts.Height, levels, r.opts.Players, r.opts.Difficulty)
}
