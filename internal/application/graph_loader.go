package application

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// supportedVersions constrains the version field of workflow files.
var supportedVersions = mustConstraint("^1.0.0")

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

// GraphLoader provides YAML configuration parsing, validation, and caching
// for workflow graphs, transforming declarative YAML specifications into
// executable graph structures.
// Use GraphLoader to load graphs from files or readers while benefiting
// from SHA256-based caching and comprehensive validation.
type GraphLoader struct {
	// validator performs struct field validation and custom validation
	// rules for graph configurations and their nested components.
	validator *validator.Validate
	// unitRegistry provides factory methods for creating workflow units
	// based on their type and configuration parameters.
	unitRegistry ports.UnitRegistry
	// observer is attached to every unit adapter. May be nil.
	observer ports.StageObserver
	// cache stores compiled graphs indexed by SHA256 hash of source YAML
	// to avoid recompilation of identical configurations.
	// WARNING: Cached graphs MUST NOT be mutated. The Graph methods
	// AddNode and AddEdge should never be called on cached graphs.
	cache map[string]*Graph // SHA256 hash -> compiled graph
	// cacheMu provides thread-safe access to the cache map during
	// concurrent read and write operations.
	cacheMu sync.RWMutex
	// sf prevents duplicate graph compilation when multiple goroutines
	// request the same graph simultaneously.
	sf singleflight.Group
}

// NewGraphLoader creates a new graph loader with validation capabilities
// and an empty cache, ready to load and compile workflow graphs.
// observer, when non-nil, is notified around every unit execution.
// NewGraphLoader returns an error if validator registration fails.
func NewGraphLoader(unitRegistry ports.UnitRegistry, observer ports.StageObserver) (*GraphLoader, error) {
	v := validator.New()

	// Register custom validators for semantic validation beyond struct tags.
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	return &GraphLoader{
		validator:    v,
		unitRegistry: unitRegistry,
		observer:     observer,
		cache:        make(map[string]*Graph),
	}, nil
}

// load is the common implementation for loading graphs from byte data,
// utilizing singleflight to prevent duplicate compilation and SHA256-based
// caching for efficiency.
// load performs comprehensive validation and returns a new graph instance.
// WARNING: The returned graph is a pointer to a cached instance. Callers
// MUST NOT mutate the graph by calling AddNode or AddEdge methods.
func (gl *GraphLoader) load(ctx context.Context, data []byte) (*Graph, error) {
	// Parse YAML first to normalize it before hashing.
	config, err := gl.parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Calculate hash based on normalized config, not raw bytes.
	hash, err := gl.calculateConfigHash(config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	// Use singleflight to prevent multiple goroutines from compiling
	// the same graph simultaneously.
	v, err, _ := gl.sf.Do(hash, func() (any, error) {
		// Check cache inside singleflight to handle race between cache check
		// and singleflight group execution.
		if graph, ok := gl.getCachedGraph(hash); ok {
			return graph, nil
		}

		// Config is already parsed and validated outside singleflight.
		if err := gl.validateConfig(config); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}

		graph, err := gl.buildGraph(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to build graph: %w", err)
		}

		gl.cacheGraph(hash, graph)

		return graph, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*Graph), nil
}

// LoadFromFile loads and compiles a workflow graph from a YAML file,
// utilizing SHA256-based caching to avoid recompilation of identical files.
// LoadFromFile performs comprehensive validation including struct validation,
// semantic validation, and unit parameter validation.
// WARNING: The returned graph is a pointer to a cached instance. Callers
// MUST NOT mutate the graph by calling AddNode or AddEdge methods.
// LoadFromFile returns an error if file reading, parsing, validation,
// or graph compilation fails.
func (gl *GraphLoader) LoadFromFile(ctx context.Context, path string) (*Graph, error) {
	// Clean the path to prevent directory traversal attacks.
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return gl.load(ctx, data)
}

// LoadFromReader loads and compiles a workflow graph from an io.Reader,
// supporting any source that implements the Reader interface.
// LoadFromReader reads all data into memory, applies SHA256-based caching,
// and performs the same validation as LoadFromFile.
// WARNING: The returned graph is a pointer to a cached instance. Callers
// MUST NOT mutate the graph by calling AddNode or AddEdge methods.
// LoadFromReader returns an error if reading, parsing, validation,
// or graph compilation fails.
func (gl *GraphLoader) LoadFromReader(ctx context.Context, r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	return gl.load(ctx, data)
}

// parseYAML unmarshals YAML byte data into a structured GraphConfig,
// handling nested configuration elements and preserving parameter flexibility.
// parseYAML uses strict decoding to detect unknown fields, preventing
// configuration typos from being silently ignored.
// parseYAML returns an error if YAML syntax is invalid, if unknown fields
// are present, or if the structure doesn't match the expected GraphConfig schema.
func (gl *GraphLoader) parseYAML(data []byte) (*GraphConfig, error) {
	var config GraphConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Strict mode - fail on unknown fields.

	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &config, nil
}

// validateConfig performs comprehensive validation on a parsed graph
// configuration, including both struct field validation and semantic
// validation of relationships between configuration elements.
// validateConfig returns an error if any validation rule fails.
func (gl *GraphLoader) validateConfig(config *GraphConfig) error {
	if err := gl.validator.Struct(config); err != nil {
		return fmt.Errorf("struct validation failed: %w", err)
	}

	if err := gl.validateSemantics(config); err != nil {
		return fmt.Errorf("semantic validation failed: %w", err)
	}

	return nil
}

// validateSemantics performs domain-specific validation rules that
// cannot be expressed through struct tags, including uniqueness
// constraints, reference integrity, and parameter validation.
// validateSemantics ensures all node IDs are globally unique across
// units, pipelines, and layers to prevent ambiguous edge references, and
// that every unit is placed in at most one pipeline or layer.
func (gl *GraphLoader) validateSemantics(config *GraphConfig) error {
	version, err := semver.StrictNewVersion(config.Version)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", config.Version, err)
	}
	if !supportedVersions.Check(version) {
		return fmt.Errorf("unsupported config version %s: want %s", version, supportedVersions)
	}

	// Track all node IDs globally to ensure uniqueness across categories.
	allNodeIDs := make(map[string]string) // ID -> node type for better error messages.
	unitIDs := make(map[string]struct{})

	for _, unit := range config.Units {
		if nodeType, exists := allNodeIDs[unit.ID]; exists {
			return fmt.Errorf("duplicate ID %q: already used by %s", unit.ID, nodeType)
		}
		allNodeIDs[unit.ID] = "unit"
		unitIDs[unit.ID] = struct{}{}

		if err := ValidateUnitParameters(unit.Type, unit.Parameters); err != nil {
			return fmt.Errorf("unit %s parameter validation failed: %w", unit.ID, err)
		}
	}

	placedIn := make(map[string]string)
	place := func(container, unitID string) error {
		if _, exists := unitIDs[unitID]; !exists {
			return fmt.Errorf("%s references non-existent unit: %s", container, unitID)
		}
		if other, exists := placedIn[unitID]; exists {
			return fmt.Errorf("unit %s is placed in both %s and %s", unitID, other, container)
		}
		placedIn[unitID] = container
		return nil
	}

	for _, pipeline := range config.Graph.Pipelines {
		if nodeType, exists := allNodeIDs[pipeline.ID]; exists {
			return fmt.Errorf("duplicate ID %q: already used by %s", pipeline.ID, nodeType)
		}
		allNodeIDs[pipeline.ID] = "pipeline"

		for _, unitID := range pipeline.Units {
			if err := place("pipeline "+pipeline.ID, unitID); err != nil {
				return err
			}
		}
	}

	for _, layer := range config.Graph.Layers {
		if nodeType, exists := allNodeIDs[layer.ID]; exists {
			return fmt.Errorf("duplicate ID %q: already used by %s", layer.ID, nodeType)
		}
		allNodeIDs[layer.ID] = "layer"

		for _, unitID := range layer.Units {
			if err := place("layer "+layer.ID, unitID); err != nil {
				return err
			}
		}
	}

	for _, edge := range config.Graph.Edges {
		if _, exists := allNodeIDs[edge.From]; !exists {
			return fmt.Errorf("edge references non-existent source node: %s", edge.From)
		}
		if _, exists := allNodeIDs[edge.To]; !exists {
			return fmt.Errorf("edge references non-existent target node: %s", edge.To)
		}
		// Units inside a container are not addressable by edges.
		if container, placed := placedIn[edge.From]; placed {
			return fmt.Errorf("edge source %s is inside %s; reference the container instead", edge.From, container)
		}
		if container, placed := placedIn[edge.To]; placed {
			return fmt.Errorf("edge target %s is inside %s; reference the container instead", edge.To, container)
		}
	}

	return nil
}

// buildGraph constructs an executable graph from a validated configuration,
// creating units, pipelines, layers, and their dependency relationships.
// buildGraph instantiates units through the unit registry, wraps them
// in adapters carrying their retry and timeout policy, and establishes
// edges while ensuring no cycles are created.
// buildGraph returns an error if unit creation, graph construction,
// or cycle detection fails.
func (gl *GraphLoader) buildGraph(ctx context.Context, config *GraphConfig) (*Graph, error) {
	graph := NewGraph()
	graph.name = config.Metadata.Name

	adapters := make(map[string]*UnitAdapter, len(config.Units))
	for _, unitConfig := range config.Units {
		unit, err := gl.createUnit(unitConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create unit %s: %w", unitConfig.ID, err)
		}
		if err := unit.Validate(); err != nil {
			return nil, fmt.Errorf("unit %s is not ready: %w", unitConfig.ID, err)
		}
		adapters[unitConfig.ID] = NewUnitAdapter(unit, unitConfig.ID,
			WithObserver(gl.observer),
			WithRetry(unitConfig.Retry),
			WithTimeout(time.Duration(unitConfig.Timeout.ExecutionTimeout)*time.Second),
		)
	}

	placedUnits := make(map[string]struct{})

	for _, pipelineConfig := range config.Graph.Pipelines {
		pipeline := NewPipeline(pipelineConfig.ID)

		for _, unitID := range pipelineConfig.Units {
			adapter, ok := adapters[unitID]
			if !ok {
				return nil, fmt.Errorf("unit %s not found for pipeline %s", unitID, pipelineConfig.ID)
			}
			if err := pipeline.Add(adapter); err != nil {
				return nil, fmt.Errorf("failed to add unit to pipeline: %w", err)
			}
			placedUnits[unitID] = struct{}{}
		}

		if err := graph.AddNode(pipeline); err != nil {
			return nil, fmt.Errorf("failed to add pipeline to graph: %w", err)
		}
	}

	for _, layerConfig := range config.Graph.Layers {
		layer := NewLayer(layerConfig.ID)
		layer.SetMergeStrategy(CandidateMergeStrategy{})
		if layerConfig.Concurrency > 0 {
			layer.SetConcurrencyLimit(layerConfig.Concurrency)
		}

		for _, unitID := range layerConfig.Units {
			adapter, ok := adapters[unitID]
			if !ok {
				return nil, fmt.Errorf("unit %s not found for layer %s", unitID, layerConfig.ID)
			}
			if err := layer.Add(adapter); err != nil {
				return nil, fmt.Errorf("failed to add unit to layer: %w", err)
			}
			placedUnits[unitID] = struct{}{}
		}

		if err := graph.AddNode(layer); err != nil {
			return nil, fmt.Errorf("failed to add layer to graph: %w", err)
		}
	}

	// Add standalone units in declaration order.
	for _, unitConfig := range config.Units {
		if _, isPlaced := placedUnits[unitConfig.ID]; isPlaced {
			continue
		}
		if err := graph.AddNode(adapters[unitConfig.ID]); err != nil {
			return nil, fmt.Errorf("failed to add unit to graph: %w", err)
		}
	}

	for _, edge := range config.Graph.Edges {
		if err := graph.AddEdge(edge.From, edge.To); err != nil {
			return nil, fmt.Errorf("failed to add edge: %w", err)
		}
	}

	// Verify no cycles exist to ensure graph can execute without deadlock.
	if graph.HasCycle() {
		return nil, fmt.Errorf("graph contains cycles")
	}

	return graph, nil
}

// createUnit instantiates a unit from its configuration by decoding the
// YAML parameters and delegating to the unit registry. Retry and timeout
// settings stay with the adapter and are not passed to the unit.
func (gl *GraphLoader) createUnit(config UnitConfig) (ports.Unit, error) {
	var params map[string]any
	if err := config.Parameters.Decode(&params); err != nil {
		return nil, fmt.Errorf("failed to decode parameters: %w", err)
	}

	unit, err := gl.unitRegistry.CreateUnit(config.Type, config.ID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit: %w", err)
	}

	return unit, nil
}

// calculateConfigHash computes the SHA256 hash of a normalized GraphConfig
// for cache indexing, ensuring semantically identical configurations produce
// the same hash regardless of whitespace or key ordering differences.
// calculateConfigHash returns a hexadecimal string representation of the hash.
func (gl *GraphLoader) calculateConfigHash(config *GraphConfig) (string, error) {
	// Normalize the config by re-encoding it with consistent formatting.
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2) // Use consistent 2-space indentation.

	if err := encoder.Encode(config); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}

	hash := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(hash[:]), nil
}

// getCachedGraph attempts to retrieve a previously compiled graph
// from the cache using its SHA256 hash as the lookup key.
// getCachedGraph returns the cached graph and true if found,
// or nil and false if no cached version exists.
// getCachedGraph is safe for concurrent use.
func (gl *GraphLoader) getCachedGraph(hash string) (*Graph, bool) {
	gl.cacheMu.RLock()
	defer gl.cacheMu.RUnlock()

	graph, ok := gl.cache[hash]
	return graph, ok
}

// cacheGraph stores a compiled graph in the cache indexed by its
// source YAML's SHA256 hash for future retrieval.
// cacheGraph is safe for concurrent use and will overwrite
// any existing entry with the same hash.
func (gl *GraphLoader) cacheGraph(hash string, graph *Graph) {
	gl.cacheMu.Lock()
	defer gl.cacheMu.Unlock()

	gl.cache[hash] = graph
}

// ClearCache removes all cached graphs and reinitializes the cache map,
// forcing subsequent loads to recompile from source.
// ClearCache is safe for concurrent use and is useful for development
// or when memory management is needed.
func (gl *GraphLoader) ClearCache() {
	gl.cacheMu.Lock()
	defer gl.cacheMu.Unlock()

	gl.cache = make(map[string]*Graph)
}

// registerCustomValidators registers domain-specific validation functions
// with the validator instance.
// registerCustomValidators returns an error if any validator registration fails.
func registerCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}
	return nil
}

// validateSemver validates that a string is a strict X.Y.Z semantic
// version. It is registered with the validator for use in struct tags.
func validateSemver(fl validator.FieldLevel) bool {
	_, err := semver.StrictNewVersion(fl.Field().String())
	return err == nil
}
