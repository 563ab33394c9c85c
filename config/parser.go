package config

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/strada-framework/strada/types"
)

// Parser exposes dot-path lookups ("server.http.port") over the loaded
// config tree.
type Parser struct {
	data map[string]interface{}
}

func NewParser(config *types.ServiceConfig) *Parser {
	parser := &Parser{data: make(map[string]interface{})}

	configBytes, err := yaml.Marshal(config)
	if err != nil {
		return parser
	}

	if err := yaml.Unmarshal(configBytes, &parser.data); err != nil {
		parser.data = make(map[string]interface{})
	}

	return parser
}

func (p *Parser) GetValue(path string, defaultValue interface{}) interface{} {
	value := p.navigateToPath(path)
	if value == nil {
		return defaultValue
	}
	return value
}

func (p *Parser) navigateToPath(path string) interface{} {
	if path == "" {
		return p.data
	}

	var current interface{} = p.data
	for _, part := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]interface{}:
			val, exists := v[part]
			if !exists {
				return nil
			}
			current = val
		case map[interface{}]interface{}:
			val, exists := v[part]
			if !exists {
				return nil
			}
			current = val
		default:
			return nil
		}
	}

	return current
}
