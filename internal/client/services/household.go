package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/feedkeeper/internal/client/client"
	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/idgen"
	"github.com/dmitrijs2005/feedkeeper/internal/logging"
)

// deviceAware is implemented by gateways that tag calls with the device id.
type deviceAware interface {
	SetDeviceID(id string)
}

// HouseholdService tracks which household this installation belongs to and
// its device identity. All methods are serialized, so two callers racing to
// ensure a household end up with the same one.
type HouseholdService struct {
	records *RecordService
	gateway client.Gateway
	log     logging.Logger

	mu sync.Mutex
	// pending is a household created remotely whose member registration
	// has not succeeded yet; the next attempt reuses it.
	pending string
}

// NewHouseholdService wires the registry. gateway may be nil when no server
// is configured; remote operations then fail with common.ErrNotConfigured.
func NewHouseholdService(records *RecordService, gateway client.Gateway, log logging.Logger) *HouseholdService {
	return &HouseholdService{records: records, gateway: gateway, log: log.With("module", "household")}
}

// EnsureDeviceID returns the persisted device id, generating one on first use.
func (h *HouseholdService) EnsureDeviceID(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ensureDeviceID(ctx)
}

func (h *HouseholdService) ensureDeviceID(ctx context.Context) (string, error) {
	st, err := h.records.Settings().Get(ctx)
	if err != nil {
		return "", err
	}
	id := st.DeviceID
	if id == "" {
		id = idgen.New(idgen.PrefixDevice)
		if err := h.records.Settings().SetDeviceID(ctx, id); err != nil {
			return "", err
		}
		h.log.Info(ctx, "device id generated", "device_id", id)
	}
	if da, ok := h.gateway.(deviceAware); ok {
		da.SetDeviceID(id)
	}
	return id, nil
}

// HouseholdID returns the active household, or "" before one exists.
func (h *HouseholdService) HouseholdID(ctx context.Context) (string, error) {
	st, err := h.records.Settings().Get(ctx)
	if err != nil {
		return "", err
	}
	return st.HouseholdID, nil
}

// SetHouseholdID makes id the active household and tags every untagged row
// with it in one transaction.
func (h *HouseholdService) SetHouseholdID(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.records.AdoptHousehold(ctx, id)
	return err
}

// CreateHousehold allocates a household on the server, registers this
// device as its first member and adopts it locally.
func (h *HouseholdService) CreateHousehold(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.createHousehold(ctx)
}

func (h *HouseholdService) createHousehold(ctx context.Context) (string, error) {
	if h.gateway == nil {
		return "", common.ErrNotConfigured
	}
	device, err := h.ensureDeviceID(ctx)
	if err != nil {
		return "", err
	}

	id := h.pending
	if id == "" {
		id = idgen.New(idgen.PrefixHousehold)
		if err := h.gateway.CreateHousehold(ctx, id); err != nil {
			return "", fmt.Errorf("create household: %w", err)
		}
		h.pending = id
	}
	if _, err := h.gateway.RegisterMember(ctx, id, device); err != nil {
		return "", fmt.Errorf("register member: %w", err)
	}
	if _, err := h.records.AdoptHousehold(ctx, id); err != nil {
		return "", err
	}
	h.pending = ""
	h.log.Info(ctx, "household created", "household", id)
	return id, nil
}

// JoinHousehold joins an existing household by its code. Unknown codes fail
// with common.ErrNotFound and leave local state untouched.
func (h *HouseholdService) JoinHousehold(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: empty household code", common.ErrInvalidRecord)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.gateway == nil {
		return common.ErrNotConfigured
	}
	device, err := h.ensureDeviceID(ctx)
	if err != nil {
		return err
	}
	if err := h.gateway.FindHousehold(ctx, code); err != nil {
		return fmt.Errorf("find household: %w", err)
	}
	if _, err := h.gateway.RegisterMember(ctx, code, device); err != nil {
		return fmt.Errorf("register member: %w", err)
	}

	prev, err := h.HouseholdID(ctx)
	if err != nil {
		return err
	}
	if prev != "" && prev != code {
		h.log.Warn(ctx, "switching household; rows of the previous household stay local", "from", prev, "to", code)
	}
	if _, err := h.records.AdoptHousehold(ctx, code); err != nil {
		return err
	}
	h.pending = ""
	h.log.Info(ctx, "household joined", "household", code)
	return nil
}

// EnsureHousehold is the single "make sure a household exists" step: it
// returns the active household, creating one remotely when there is none.
// Offline or unconfigured installations get ("", err) and keep working
// locally; their rows are tagged once a household is established.
func (h *HouseholdService) EnsureHousehold(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id, err := h.HouseholdID(ctx)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	id, err = h.createHousehold(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotConfigured) || errors.Is(err, common.ErrRemoteUnavailable) {
			h.log.Debug(ctx, "household not established yet", "err", err)
		}
		return "", err
	}
	return id, nil
}
