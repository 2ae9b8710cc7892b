package registry

import (
	"encoding/json"
	"fmt"

	"github.com/arloliu/mmv/errs"
	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/section"
)

// Label attaches a name/value pair to the registry, a cluster, an item, an
// indom or a single instance.
type Label struct {
	// Type is the label kind, optionally ORed with format.LabelOptional.
	Type format.LabelType
	// Identity is the item number for LabelItem, the indom serial for
	// LabelIndom and LabelInstances. It is ignored for other kinds.
	Identity uint32
	// Internal is the instance id for LabelInstances.
	Internal int32
	Name     string
	// Value is any JSON-encodable value.
	Value any
}

// Payload returns the JSON object stored in the label record.
func (l Label) Payload() (string, error) {
	b, err := json.Marshal(map[string]any{l.Name: l.Value})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", errs.ErrInvalidLabel, l.Name, err)
	}
	if len(b) > section.LabelTextMax {
		return "", fmt.Errorf("%w: %s payload is %d bytes", errs.ErrInvalidLabel, l.Name, len(b))
	}

	return string(b), nil
}

// AddLabel validates and records a label. Adding any label selects format
// version 3.
func (r *Registry) AddLabel(l Label) error {
	if r.sealed {
		return errs.ErrRegistryAlreadyStarted
	}
	if !l.Type.Valid() {
		return fmt.Errorf("%w: type %#x", errs.ErrInvalidLabel, uint32(l.Type))
	}
	if err := validateName(l.Name, errs.ErrInvalidLabel); err != nil {
		return err
	}
	if _, err := l.Payload(); err != nil {
		return err
	}

	switch l.Type.Kind() {
	case format.LabelItem:
		if !r.items.Contains(l.Identity) {
			return fmt.Errorf("%w: unknown item %d", errs.ErrInvalidLabel, l.Identity)
		}
	case format.LabelIndom:
		if _, ok := r.serials[l.Identity]; !ok {
			return fmt.Errorf("%w: %w: %d", errs.ErrInvalidLabel, errs.ErrUnknownIndom, l.Identity)
		}
	case format.LabelInstances:
		idx, ok := r.serials[l.Identity]
		if !ok {
			return fmt.Errorf("%w: %w: %d", errs.ErrInvalidLabel, errs.ErrUnknownIndom, l.Identity)
		}
		if !r.indoms[idx].ids.Contains(l.Internal) {
			return fmt.Errorf("%w: indom %d has no instance %d", errs.ErrInvalidLabel, l.Identity, l.Internal)
		}
	case format.LabelCluster:
		l.Identity = r.cluster
	default:
		l.Identity = 0
	}
	if l.Type.Kind() != format.LabelInstances {
		l.Internal = 0
	}

	r.labels = append(r.labels, l)

	return nil
}
