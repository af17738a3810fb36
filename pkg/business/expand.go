package business

import (
	"fmt"

	"github.com/cuemby/orbit/pkg/apierr"
	"github.com/cuemby/orbit/pkg/types"
	"github.com/google/uuid"
)

// expandTemplate resolves every component template a business template
// references and builds a fresh, unscheduled component list with newly
// generated component_ids. A business template may reference the same
// component template more than once; each occurrence produces its own
// component instance, as the original C++ manager's template expansion
// allowed (see DESIGN.md).
func expandTemplate(bt *types.BusinessTemplate, load func(id string) (*types.ComponentTemplate, error)) ([]*types.Component, error) {
	components := make([]*types.Component, 0, len(bt.ComponentTemplateIDs))

	for _, ctID := range bt.ComponentTemplateIDs {
		ct, err := load(ctID)
		if err != nil {
			return nil, apierr.Validation(fmt.Sprintf("business template %s references unknown component template %s", bt.ID, ctID))
		}

		components = append(components, &types.Component{
			ID:     uuid.NewString(),
			Name:   ct.TemplateName,
			Type:   ct.Type,
			Config: ct.Config,
			Status: types.ComponentStatusScheduled,
		})
	}

	return components, nil
}
