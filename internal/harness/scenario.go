package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/OrionReed/ggraph/internal/engine"
)

// Scenario is a scripted session against one board.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Board is the path of a CUE file declaring the board. Relative paths
	// are resolved against the scenario file's directory.
	Board string `yaml:"board,omitempty"`

	// CUE is inline board source, used instead of Board.
	CUE string `yaml:"cue,omitempty"`

	// BoardName selects a board when the source declares several.
	BoardName string `yaml:"board_name,omitempty"`

	// Mode is "lazy" (default) or "eager".
	Mode string `yaml:"mode,omitempty"`

	// MaxSteps caps an eager wave. Zero uses the engine default.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// Contributor is the local user. Defaults to DefaultContributor.
	Contributor string `yaml:"contributor,omitempty"`

	// Replies script the text generator.
	Replies []ReplySpec `yaml:"replies,omitempty"`

	// Steps are decoded into Step values by DecodeSteps.
	Steps []map[string]any `yaml:"steps"`

	// Assertions validate the final board and the trace.
	Assertions []Assertion `yaml:"assertions"`
}

// DefaultContributor is the local user when a scenario names none.
const DefaultContributor = "user"

// ReplySpec is one scripted generator reply.
type ReplySpec struct {
	Chunks []string `yaml:"chunks"`
	Error  string   `yaml:"error,omitempty"`
}

// Step operations.
const (
	OpSetText     = "set_text"
	OpContribute  = "contribute"
	OpWithdraw    = "withdraw"
	OpSetOutput   = "set_output"
	OpAddNode     = "add_node"
	OpRemoveNode  = "remove_node"
	OpConnect     = "connect"
	OpDisconnect  = "disconnect"
	OpSetLabel    = "set_label"
	OpEvaluate    = "evaluate"
	OpEvaluateAll = "evaluate_all"
	OpGenerate    = "generate"
)

// Step is one operation on the board.
type Step struct {
	Op          string `mapstructure:"op"`
	Node        string `mapstructure:"node"`
	Text        string `mapstructure:"text"`
	Kind        string `mapstructure:"kind"`
	Contributor string `mapstructure:"contributor"`
	Value       any    `mapstructure:"value"`

	// Connector fields.
	ID         string `mapstructure:"id"`
	From       string `mapstructure:"from"`
	To         string `mapstructure:"to"`
	Label      string `mapstructure:"label"`
	Undirected bool   `mapstructure:"undirected"`

	// ExpectError makes the step pass only when it fails with an error
	// containing this text.
	ExpectError string `mapstructure:"expect_error"`
}

// Assertion validates the final board or the trace.
type Assertion struct {
	Type    string   `yaml:"type"`
	Node    string   `yaml:"node,omitempty"`
	Expect  any      `yaml:"expect,omitempty"`
	Trigger string   `yaml:"trigger,omitempty"`
	Count   *int     `yaml:"count,omitempty"`
	Nodes   []string `yaml:"nodes,omitempty"`
}

// Assertion type constants.
const (
	AssertValue           = "value"
	AssertSyntaxError     = "syntax_error"
	AssertValueType       = "value_type"
	AssertOutput          = "output"
	AssertPending         = "pending"
	AssertGeneration      = "generation"
	AssertContributions   = "contributions"
	AssertEvaluationCount = "evaluation_count"
	AssertEvaluationOrder = "evaluation_order"
	AssertPrompts         = "prompts"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Board != "" && !filepath.IsAbs(scenario.Board) {
		scenario.Board = filepath.Join(filepath.Dir(path), scenario.Board)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML and validates it.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// DecodeSteps decodes the raw step maps. Unknown fields are errors.
func (s *Scenario) DecodeSteps() ([]Step, error) {
	steps := make([]Step, 0, len(s.Steps))
	for i, raw := range s.Steps {
		step, err := decodeStep(raw)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func decodeStep(raw map[string]any) (Step, error) {
	var step Step
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &step,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return step, fmt.Errorf("create step decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return step, err
	}
	if err := validateStep(step); err != nil {
		return step, err
	}
	return step, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Board == "" && s.CUE == "" {
		return fmt.Errorf("board or cue is required")
	}
	if s.Board != "" && s.CUE != "" {
		return fmt.Errorf("board and cue are mutually exclusive")
	}
	if _, err := engine.ParseMode(s.Mode); err != nil {
		return err
	}
	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative")
	}
	if _, err := s.DecodeSteps(); err != nil {
		return err
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a, i); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(s Step) error {
	need := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("%s: %s is required", s.Op, field)
		}
		return nil
	}

	switch s.Op {
	case OpSetText:
		return need("node", s.Node)
	case OpContribute, OpWithdraw:
		if err := need("node", s.Node); err != nil {
			return err
		}
		return need("contributor", s.Contributor)
	case OpSetOutput, OpRemoveNode, OpEvaluate, OpGenerate:
		return need("node", s.Node)
	case OpAddNode:
		if err := need("node", s.Node); err != nil {
			return err
		}
		return need("kind", s.Kind)
	case OpConnect:
		if err := need("id", s.ID); err != nil {
			return err
		}
		if err := need("from", s.From); err != nil {
			return err
		}
		return need("to", s.To)
	case OpDisconnect, OpSetLabel:
		return need("id", s.ID)
	case OpEvaluateAll:
		return nil
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
}

func validateAssertion(a Assertion, index int) error {
	needNode := func() error {
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertValue, AssertOutput, AssertPending:
		return needNode()
	case AssertSyntaxError, AssertValueType, AssertGeneration:
		if err := needNode(); err != nil {
			return err
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertContributions, AssertEvaluationCount:
		if a.Type == AssertContributions {
			if err := needNode(); err != nil {
				return err
			}
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for %s", index, a.Type)
		}
	case AssertEvaluationOrder:
		if len(a.Nodes) == 0 {
			return fmt.Errorf("assertions[%d]: nodes list is required for evaluation_order", index)
		}
	case AssertPrompts:
		if _, ok := a.Expect.([]any); !ok {
			return fmt.Errorf("assertions[%d]: expect must be a list for prompts", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
