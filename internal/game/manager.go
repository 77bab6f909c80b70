package game

import (
	"sync"

	"go.uber.org/zap"

	"github.com/isnotcursed/polymarket-casino-slot/internal/bet"
	"github.com/isnotcursed/polymarket-casino-slot/internal/game/slot"
	"github.com/isnotcursed/polymarket-casino-slot/internal/repository"
)

// Manager 按用户维护各自的旋转编排器
//
// 每个用户同一时刻只有一台"机器"：同一用户的并发 Spin 会被
// 该用户的编排器拒绝，不同用户互不影响。
type Manager struct {
	mu            sync.Mutex
	orchestrators map[uint]*Orchestrator

	config   *Config
	bets     *bet.Service
	machine  *slot.SlotMachineService
	spinRepo repository.SpinRecordRepository
	logger   *zap.Logger
}

// NewManager 创建编排器管理器
func NewManager(
	config *Config,
	bets *bet.Service,
	machine *slot.SlotMachineService,
	spinRepo repository.SpinRecordRepository,
	logger *zap.Logger,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		orchestrators: make(map[uint]*Orchestrator),
		config:        config,
		bets:          bets,
		machine:       machine,
		spinRepo:      spinRepo,
		logger:        logger,
	}
}

// Get 获取用户的编排器，不存在则创建
func (m *Manager) Get(userID uint) *Orchestrator {
	m.mu.Lock()
	defer m.mu.Unlock()

	if o, ok := m.orchestrators[userID]; ok {
		return o
	}

	o := NewOrchestrator(m.config, m.bets, m.machine, m.spinRepo, nil,
		m.logger.With(zap.Uint("user_id", userID)))
	m.orchestrators[userID] = o
	return o
}

// Remove 移除用户的编排器
func (m *Manager) Remove(userID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orchestrators, userID)
}
