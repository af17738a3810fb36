package business

import (
	"fmt"

	"github.com/cuemby/orbit/pkg/apierr"
	"github.com/cuemby/orbit/pkg/types"
)

// BusinessSpec is the input to DeployBusiness: a business name plus the
// components to deploy, not yet assigned ids or placement.
type BusinessSpec struct {
	Name       string
	Components []*types.Component
}

func validateSpec(spec BusinessSpec) error {
	if spec.Name == "" {
		return apierr.Validation("business_name is required")
	}
	if len(spec.Components) == 0 {
		return apierr.Validation("components must be non-empty")
	}
	for i, c := range spec.Components {
		if err := validateComponent(i, c); err != nil {
			return err
		}
	}
	return nil
}

func validateComponent(index int, c *types.Component) error {
	// The supplied component_id is replaced with a generated one at
	// deploy time, but the field is still part of the required spec
	// shape.
	if c.ID == "" {
		return apierr.Validation(fmt.Sprintf("component[%d]: component_id is required", index))
	}
	if c.Name == "" {
		return apierr.Validation(fmt.Sprintf("component[%d]: component_name is required", index))
	}
	switch c.Type {
	case types.ComponentTypeDocker:
		if c.Config.ImageURL == "" && c.Config.ImageName == "" {
			return apierr.Validation(fmt.Sprintf("component[%d]: docker component requires image_url or image_name", index))
		}
	case types.ComponentTypeBinary:
		if c.Config.BinaryPath == "" && c.Config.BinaryURL == "" {
			return apierr.Validation(fmt.Sprintf("component[%d]: binary component requires binary_path or binary_url", index))
		}
	default:
		return apierr.Validation(fmt.Sprintf("component[%d]: unknown type %q", index, c.Type))
	}
	return nil
}
