package bindings

import (
	"fmt"
	"os"
	"sort"

	"github.com/marcelsud/payment-webhooks/webhook"
	"gopkg.in/yaml.v3"
)

/* Loader manages event bindings from bindings.yaml
 * Provides in-memory lookup keyed by event type
 */

// Config represents the structure of bindings.yaml
type Config struct {
	Bindings []BindingConfig `yaml:"bindings"`
}

// BindingConfig represents a single binding in the YAML file
type BindingConfig struct {
	EventType  string `yaml:"event_type"`
	Subject    string `yaml:"subject"`
	Normalizer string `yaml:"normalizer"` // Default: charge
}

// Loader holds the loaded bindings
type Loader struct {
	bindings map[string]*Binding
}

// NewLoader creates a new binding loader
func NewLoader() *Loader {
	return &Loader{
		bindings: make(map[string]*Binding),
	}
}

// Load reads and parses a bindings file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading bindings file: %w", err)
	}
	return l.Parse(data)
}

// Parse validates and loads bindings from YAML content
// Nothing is loaded when any binding is invalid
func (l *Loader) Parse(data []byte) error {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing bindings YAML: %w", err)
	}

	if len(config.Bindings) == 0 {
		return fmt.Errorf("bindings file declares no bindings")
	}

	loaded := make(map[string]*Binding, len(config.Bindings))
	for _, bc := range config.Bindings {
		normalizer := bc.Normalizer
		if normalizer == "" {
			normalizer = webhook.ChargeNormalizer
		}

		binding := &Binding{
			EventType:  bc.EventType,
			Subject:    bc.Subject,
			Normalizer: normalizer,
		}

		if err := binding.Validate(); err != nil {
			return fmt.Errorf("validating binding: %w", err)
		}
		if _, dup := loaded[binding.EventType]; dup {
			return fmt.Errorf("validating binding: event type %s is bound twice", binding.EventType)
		}

		loaded[binding.EventType] = binding
	}

	l.bindings = loaded
	return nil
}

// Get retrieves a binding by event type
func (l *Loader) Get(eventType string) (*Binding, error) {
	binding, exists := l.bindings[eventType]
	if !exists {
		return nil, fmt.Errorf("binding not found: %s", eventType)
	}
	return binding, nil
}

// List returns all loaded bindings ordered by event type
func (l *Loader) List() []*Binding {
	bindings := make([]*Binding, 0, len(l.bindings))
	for _, binding := range l.bindings {
		bindings = append(bindings, binding)
	}
	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].EventType < bindings[j].EventType
	})
	return bindings
}

// Exists checks if an event type is bound
func (l *Loader) Exists(eventType string) bool {
	_, exists := l.bindings[eventType]
	return exists
}

// Subjects returns the distinct subjects of the loaded bindings
func (l *Loader) Subjects() []string {
	seen := make(map[string]bool)
	var subjects []string
	for _, b := range l.List() {
		if !seen[b.Subject] {
			seen[b.Subject] = true
			subjects = append(subjects, b.Subject)
		}
	}
	return subjects
}

// LoadOrDefault loads filePath, or the built-in bindings when filePath is empty
func LoadOrDefault(filePath string) (*Loader, error) {
	l := NewLoader()
	if filePath == "" {
		for _, b := range Defaults() {
			l.bindings[b.EventType] = b
		}
		return l, nil
	}
	if err := l.Load(filePath); err != nil {
		return nil, err
	}
	return l, nil
}
