package repository

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// HubRepository Hub 注册表仓库。
// 只保存 Hub 的配网状态与设备列表快照，遥测数据不落库。
type HubRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHubRepository 创建 Hub 仓库
func NewHubRepository(db *sql.DB, logger *zap.Logger) *HubRepository {
	return &HubRepository{
		db:     db,
		logger: logger,
	}
}

// Hub Hub 模型
type Hub struct {
	HubID       string
	LastReadyAt *time.Time
	UpdatedAt   time.Time
}

// MarkHubReady 记录 Hub 配网完成时刻（存在则更新）
func (r *HubRepository) MarkHubReady(hubID string, readyAt time.Time) error {
	query := `
		INSERT INTO hubs (hub_id, last_ready_at, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (hub_id)
		DO UPDATE SET last_ready_at = EXCLUDED.last_ready_at, updated_at = NOW()
	`

	if _, err := r.db.Exec(query, hubID, readyAt); err != nil {
		return fmt.Errorf("failed to mark hub ready: %w", err)
	}

	return nil
}

// ReplaceConnectedDevices 用最新快照整体替换 Hub 的设备列表
func (r *HubRepository) ReplaceConnectedDevices(hubID string, devices []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 确保 Hub 行存在（设备列表可能先于就绪信号到达）
	ensureQuery := `
		INSERT INTO hubs (hub_id, updated_at)
		VALUES ($1, NOW())
		ON CONFLICT (hub_id) DO UPDATE SET updated_at = NOW()
	`
	if _, err := tx.Exec(ensureQuery, hubID); err != nil {
		return fmt.Errorf("failed to upsert hub: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM hub_devices WHERE hub_id = $1`, hubID); err != nil {
		return fmt.Errorf("failed to clear hub devices: %w", err)
	}

	insertQuery := `
		INSERT INTO hub_devices (hub_id, device_id, position)
		VALUES ($1, $2, $3)
	`
	for i, deviceID := range devices {
		if _, err := tx.Exec(insertQuery, hubID, deviceID, i); err != nil {
			return fmt.Errorf("failed to insert hub device: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetHub 查询单个 Hub
func (r *HubRepository) GetHub(hubID string) (*Hub, error) {
	query := `
		SELECT
			h.hub_id,
			h.last_ready_at,
			h.updated_at
		FROM hubs h
		WHERE h.hub_id = $1
		LIMIT 1
	`

	hub := &Hub{}
	err := r.db.QueryRow(query, hubID).Scan(
		&hub.HubID,
		&hub.LastReadyAt,
		&hub.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("hub not found: %s", hubID)
		}
		return nil, fmt.Errorf("failed to query hub: %w", err)
	}

	return hub, nil
}

// ListConnectedDevices 查询 Hub 的设备列表快照（按上报顺序）
func (r *HubRepository) ListConnectedDevices(hubID string) ([]string, error) {
	query := `
		SELECT d.device_id
		FROM hub_devices d
		WHERE d.hub_id = $1
		ORDER BY d.position
	`

	rows, err := r.db.Query(query, hubID)
	if err != nil {
		return nil, fmt.Errorf("failed to query hub devices: %w", err)
	}
	defer rows.Close()

	devices := []string{}
	for rows.Next() {
		var deviceID string
		if err := rows.Scan(&deviceID); err != nil {
			return nil, fmt.Errorf("failed to scan hub device: %w", err)
		}
		devices = append(devices, deviceID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate hub devices: %w", err)
	}

	return devices, nil
}
