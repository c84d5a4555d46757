package presets

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/angelmondragon/studiovault/internal/repo"
	"github.com/angelmondragon/studiovault/pkg/db/models"
	"github.com/angelmondragon/studiovault/pkg/enums"
	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
	"github.com/angelmondragon/studiovault/pkg/ids"
)

type AddInput struct {
	Name      string
	Workspace enums.WorkspaceKind
	Settings  map[string]any
}

// ImportResult counts how an imported document was merged.
type ImportResult struct {
	Imported int `json:"imported"`
	Renamed  int `json:"renamed"`
	Skipped  int `json:"skipped"`
}

type Service struct {
	repo *repo.Repository[models.Preset]
	now  func() time.Time
}

func NewService(store repo.Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store required")
	}
	return &Service{repo: repo.New[models.Preset](store), now: time.Now}, nil
}

func (s *Service) Add(ctx context.Context, input AddInput) (*models.Preset, error) {
	preset, err := s.build(input.Name, input.Workspace, input.Settings)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Add(ctx, *preset); err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "save preset")
	}
	return preset, nil
}

func (s *Service) build(name string, workspace enums.WorkspaceKind, settings map[string]any) (*models.Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preset name required")
	}
	if !workspace.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid workspace %q", workspace))
	}
	if settings == nil {
		settings = map[string]any{}
	}
	now := s.now()
	return &models.Preset{
		ID:        ids.Timed(now),
		Name:      name,
		Workspace: workspace,
		Settings:  datatypes.JSONMap(settings),
		CreatedAt: now.UnixMilli(),
	}, nil
}

// List returns presets newest first, optionally limited to one workspace.
func (s *Service) List(ctx context.Context, workspace enums.WorkspaceKind) ([]models.Preset, error) {
	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "list presets")
	}
	out := rows[:0]
	for _, p := range rows {
		if workspace == "" || p.Workspace == workspace {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "delete preset")
	}
	return nil
}

// Export serialises every preset as a JSON array.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	rows, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.Preset{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode presets")
	}
	return data, nil
}

// Import merges a document produced by Export. Entries without a name or
// with an unknown workspace are skipped. An entry whose id or name is
// already taken is stored under a fresh id so nothing local is overwritten.
func (s *Service) Import(ctx context.Context, data []byte) (*ImportResult, error) {
	var incoming []models.Preset
	if err := json.Unmarshal(data, &incoming); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid presets document")
	}

	existing, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load presets")
	}
	takenIDs := make(map[string]bool, len(existing))
	takenNames := make(map[string]bool, len(existing))
	for _, p := range existing {
		takenIDs[p.ID] = true
		takenNames[presetKey(p.Workspace, p.Name)] = true
	}

	result := &ImportResult{}
	var batch []models.Preset
	for _, in := range incoming {
		fresh, err := s.build(in.Name, in.Workspace, in.Settings)
		if err != nil {
			result.Skipped++
			continue
		}
		id := strings.TrimSpace(in.ID)
		key := presetKey(fresh.Workspace, fresh.Name)
		switch {
		case id != "" && !takenIDs[id] && !takenNames[key]:
			fresh.ID = id
			if in.CreatedAt > 0 {
				fresh.CreatedAt = in.CreatedAt
			}
		case id != "":
			result.Renamed++
		}
		takenIDs[fresh.ID] = true
		takenNames[key] = true
		batch = append(batch, *fresh)
		result.Imported++
	}

	if err := s.repo.AddMany(ctx, batch); err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "import presets")
	}
	return result, nil
}

func presetKey(workspace enums.WorkspaceKind, name string) string {
	return string(workspace) + "\x00" + strings.ToLower(strings.TrimSpace(name))
}
