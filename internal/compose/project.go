package compose

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Project is a merged compose configuration. The whole YAML document is
// kept so that serialising it again loses nothing but formatting.
type Project struct {
	doc      *yaml.Node
	services []*Service
}

// Service is one entry of the services mapping
type Service struct {
	Name    string
	Image   string
	Volumes []Mount
	Labels  map[string]string

	node *yaml.Node
}

// Label returns the value of a label, trimmed, and whether it is set to a
// non-blank value
func (s *Service) Label(key string) (string, bool) {
	v := strings.TrimSpace(s.Labels[key])
	return v, v != ""
}

// Parse decodes a compose document. It fails when the document has no
// services mapping.
func Parse(data []byte) (*Project, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "invalid compose document")
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("compose document is not a mapping")
	}

	services := mappingValue(doc.Content[0], "services")
	if services == nil || services.Kind != yaml.MappingNode {
		return nil, errors.New("compose document has no services")
	}

	p := &Project{doc: &doc}
	for i := 0; i+1 < len(services.Content); i += 2 {
		name := services.Content[i].Value
		svc, err := decodeService(name, services.Content[i+1])
		if err != nil {
			return nil, err
		}
		p.services = append(p.services, svc)
	}
	return p, nil
}

// Services returns the services in declaration order
func (p *Project) Services() []*Service {
	return p.services
}

// Service looks a service up by name
func (p *Project) Service(name string) (*Service, bool) {
	for _, s := range p.services {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// PinImage replaces the image reference of a service. It reports false when
// the project has no such service.
func (p *Project) PinImage(service, image string) bool {
	s, ok := p.Service(service)
	if !ok {
		return false
	}
	s.Image = image
	if s.node.Kind != yaml.MappingNode {
		*s.node = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	if v := mappingValue(s.node, "image"); v != nil {
		v.Kind = yaml.ScalarNode
		v.Tag = "!!str"
		v.Style = 0
		v.Value = image
		v.Content = nil
		return true
	}
	s.node.Content = append(s.node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "image"},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: image},
	)
	return true
}

// Images returns the image reference of every service
func (p *Project) Images() map[string]string {
	images := make(map[string]string, len(p.services))
	for _, s := range p.services {
		images[s.Name] = s.Image
	}
	return images
}

// Marshal serialises the full document
func (p *Project) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p.doc); err != nil {
		return nil, errors.Wrap(err, "encoding compose document")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "encoding compose document")
	}
	return buf.Bytes(), nil
}

func decodeService(name string, node *yaml.Node) (*Service, error) {
	svc := &Service{Name: name, Labels: map[string]string{}, node: node}
	if node.Kind != yaml.MappingNode {
		// "web:" with no body is legal yaml and decodes to a null scalar
		return svc, nil
	}

	if v := mappingValue(node, "image"); v != nil {
		svc.Image = v.Value
	}

	if v := mappingValue(node, "labels"); v != nil {
		labels, err := decodeLabels(v)
		if err != nil {
			return nil, errors.Wrapf(err, "service %s", name)
		}
		svc.Labels = labels
	}

	if v := mappingValue(node, "volumes"); v != nil {
		if v.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("service %s: volumes must be a list", name)
		}
		for _, item := range v.Content {
			m, err := decodeMount(item)
			if err != nil {
				return nil, errors.Wrapf(err, "service %s", name)
			}
			svc.Volumes = append(svc.Volumes, m)
		}
	}
	return svc, nil
}

// decodeLabels accepts both the mapping form and the KEY=value list form
func decodeLabels(node *yaml.Node) (map[string]string, error) {
	labels := map[string]string{}
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			labels[node.Content[i].Value] = node.Content[i+1].Value
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			key, value, _ := strings.Cut(item.Value, "=")
			labels[key] = value
		}
	case yaml.ScalarNode:
		if node.Tag != "!!null" {
			return nil, errors.New("labels must be a mapping or a list")
		}
	default:
		return nil, errors.New("labels must be a mapping or a list")
	}
	return labels, nil
}

func decodeMount(node *yaml.Node) (Mount, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return ParseMount(node.Value), nil
	case yaml.MappingNode:
		var long struct {
			Type   string `yaml:"type"`
			Source string `yaml:"source"`
			Target string `yaml:"target"`
		}
		if err := node.Decode(&long); err != nil {
			return Mount{}, errors.Wrap(err, "invalid volume")
		}
		return newLongMount(long.Type, long.Source, long.Target), nil
	default:
		return Mount{}, errors.New("invalid volume entry")
	}
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
