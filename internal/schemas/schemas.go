// Package schemas validates candidate and policy documents received from
// outside the process against embedded JSON schemas, then decodes them.
package schemas

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

//go:embed candidates.schema.json
var candidatesSchemaJSON string

//go:embed policy.schema.json
var policySchemaJSON string

//go:embed select_request.schema.json
var selectRequestSchemaJSON string

// ErrSchemaViolation is wrapped by every SchemaError.
var ErrSchemaViolation = errors.New("document does not match schema")

// SchemaError lists the problems found in one document.
type SchemaError struct {
	// Document names the schema, e.g. "policy".
	Document string

	// Problems are "<json pointer>: <message>" strings, sorted.
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Document, strings.Join(e.Problems, "; "))
}

func (e *SchemaError) Unwrap() error { return ErrSchemaViolation }

var printer = message.NewPrinter(language.English)

var (
	candidatesSchema    *jsonschema.Schema
	policySchema        *jsonschema.Schema
	selectRequestSchema *jsonschema.Schema
)

func init() {
	compiler := jsonschema.NewCompiler()
	for name, raw := range map[string]string{
		"candidates.schema.json":     candidatesSchemaJSON,
		"policy.schema.json":         policySchemaJSON,
		"select_request.schema.json": selectRequestSchemaJSON,
	} {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
		if err != nil {
			panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
		}
		if err := compiler.AddResource(name, doc); err != nil {
			panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
		}
	}
	candidatesSchema = compiler.MustCompile("candidates.schema.json")
	policySchema = compiler.MustCompile("policy.schema.json")
	selectRequestSchema = compiler.MustCompile("select_request.schema.json")
}

// validate checks a decoded instance against schema.
func validate(document string, schema *jsonschema.Schema, instance any) error {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("%s: %w", document, err)
	}
	var problems []string
	collect(ve, &problems)
	slices.Sort(problems)
	return &SchemaError{Document: document, Problems: slices.Compact(problems)}
}

func collect(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		*out = append(*out, fmt.Sprintf("/%s: %s",
			strings.Join(ve.InstanceLocation, "/"), ve.ErrorKind.LocalizedString(printer)))
		return
	}
	for _, c := range ve.Causes {
		collect(c, out)
	}
}

func parseJSON(document string, data []byte) (any, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, &SchemaError{Document: document, Problems: []string{"/: " + err.Error()}}
	}
	return inst, nil
}

// DecodeCandidates validates a JSON candidate list and decodes it.
func DecodeCandidates(data []byte) ([]domain.Candidate, error) {
	inst, err := parseJSON("candidates", data)
	if err != nil {
		return nil, err
	}
	if err := validate("candidates", candidatesSchema, inst); err != nil {
		return nil, err
	}
	var out []domain.Candidate
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode candidates: %w", err)
	}
	return out, nil
}

// DecodePolicy validates a policy given as JSON or YAML and decodes it.
// JSON is a subset of YAML, so both go through the YAML parser.
func DecodePolicy(data []byte) (domain.SelectionPolicy, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return domain.SelectionPolicy{}, &SchemaError{Document: "policy", Problems: []string{"/: " + err.Error()}}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if err := validate("policy", policySchema, doc); err != nil {
		return domain.SelectionPolicy{}, err
	}
	var policy domain.SelectionPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return domain.SelectionPolicy{}, fmt.Errorf("failed to decode policy: %w", err)
	}
	return policy, nil
}

// SelectRequest is the body of a selection request.
type SelectRequest struct {
	Candidates []domain.Candidate     `json:"candidates"`
	Policy     domain.SelectionPolicy `json:"policy"`
}

// DecodeSelectRequest validates and decodes a selection request body.
func DecodeSelectRequest(data []byte) (SelectRequest, error) {
	inst, err := parseJSON("select request", data)
	if err != nil {
		return SelectRequest{}, err
	}
	if err := validate("select request", selectRequestSchema, inst); err != nil {
		return SelectRequest{}, err
	}
	var req SelectRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return SelectRequest{}, fmt.Errorf("failed to decode select request: %w", err)
	}
	return req, nil
}
