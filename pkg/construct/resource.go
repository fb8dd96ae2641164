package construct

type (
	Resource struct {
		ID         ResourceId
		Properties Properties
		Options    Options
	}

	// Options are handed to the orchestration runtime alongside the resource's properties.
	Options struct {
		// Parent is the URN of the component which created the resource.
		Parent              string       `yaml:"parent,omitempty"`
		DependsOn           []ResourceId `yaml:"dependsOn,omitempty"`
		Protect             bool         `yaml:"protect,omitempty"`
		RetainOnDelete      bool         `yaml:"retainOnDelete,omitempty"`
		DeleteBeforeReplace bool         `yaml:"deleteBeforeReplace,omitempty"`
		IgnoreChanges       []string     `yaml:"ignoreChanges,omitempty"`
	}
)

func CreateResource(id ResourceId) *Resource {
	return &Resource{
		ID:         id,
		Properties: make(Properties),
	}
}

// Dependencies returns the resources this resource must be created after: the explicit DependsOn ids
// followed by every resource referenced by a deferred value inside its properties.
func (r *Resource) Dependencies() []ResourceId {
	seen := make(map[ResourceId]struct{})
	var deps []ResourceId
	add := func(ids ...ResourceId) {
		for _, id := range ids {
			if _, ok := seen[id]; ok || id == r.ID || id.IsZero() {
				continue
			}
			seen[id] = struct{}{}
			deps = append(deps, id)
		}
	}
	add(r.Options.DependsOn...)
	add(r.Properties.Dependencies()...)
	return deps
}
