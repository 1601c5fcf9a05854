package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/voxyz/agentworld/pkg/models"
)

// backupTable describes one table snapshot: small tables dump in full,
// large append-only tables keep a 7-day lookback.
type backupTable struct {
	name     string
	lookback time.Duration
}

var backupTables = []backupTable{
	{name: "teams"},
	{name: "agents"},
	{name: "name_pool"},
	{name: "agent_personas"},
	{name: "agent_skills"},
	{name: "policies"},
	{name: "projects"},
	{name: "hiring_proposals"},
	{name: "mission_proposals", lookback: 7 * 24 * time.Hour},
	{name: "missions", lookback: 7 * 24 * time.Hour},
	{name: "mission_steps", lookback: 7 * 24 * time.Hour},
	{name: "approval_chain", lookback: 7 * 24 * time.Hour},
	{name: "agent_memories", lookback: 7 * 24 * time.Hour},
	{name: "lessons_learned", lookback: 7 * 24 * time.Hour},
	{name: "events", lookback: 7 * 24 * time.Hour},
	{name: "model_usage", lookback: 7 * 24 * time.Hour},
}

// runBackup snapshots the configured tables to the file-storage platform
// under a day-stamped folder. Failures are logged per table; the job keeps
// going.
func (d *Dispatcher) runBackup(ctx context.Context) {
	if d.drive == nil {
		d.logger.Info("Backup skipped: file storage not configured")
		return
	}

	day := d.sched.DayString()
	failed := 0

	for _, table := range backupTables {
		data, err := d.dumpTable(ctx, table)
		if err != nil {
			d.logger.Error("Backup dump failed", "table", table.name, "error", err)
			failed++
			continue
		}
		if err := d.drive.WriteBackupFile(ctx, day, table.name, data); err != nil {
			d.logger.Error("Backup upload failed", "table", table.name, "error", err)
			failed++
		}
	}

	if failed > 0 {
		d.fail(ctx, "backup_error", fmt.Errorf("%d of %d tables failed to back up", failed, len(backupTables)))
		return
	}
	d.emit(ctx, "backup_completed", models.SeverityInfo,
		fmt.Sprintf("Backed up %d tables under %s", len(backupTables), day), "")
}

// dumpTable serializes a table's rows as a JSON array of objects. Table
// names come from the compiled backupTables list, never from input.
func (d *Dispatcher) dumpTable(ctx context.Context, table backupTable) ([]byte, error) {
	query := "SELECT * FROM " + table.name
	var args []any
	if table.lookback > 0 {
		query += " WHERE created_at >= $1"
		args = append(args, time.Now().Add(-table.lookback))
	}

	rows, err := d.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table.name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table.name, err)
	}

	var records []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table.name, err)
		}

		record := make(map[string]any, len(columns))
		for i, col := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			record[col] = v
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return json.MarshalIndent(records, "", "  ")
}

// runStatePush pushes JSON snapshots of the org's durable state to the
// code-hosting platform under state/.
func (d *Dispatcher) runStatePush(ctx context.Context) {
	if d.github == nil {
		d.logger.Info("State push skipped: code host not configured")
		return
	}

	snapshots := map[string]func(context.Context) (any, error){
		"agents":   func(ctx context.Context) (any, error) { return d.svc.Agents.ListActiveAgents(ctx) },
		"teams":    func(ctx context.Context) (any, error) { return d.svc.Agents.ListTeams(ctx) },
		"policy":   func(ctx context.Context) (any, error) { return d.svc.Policies.ListLatest(ctx) },
		"personas": d.snapshotPersonas,
		"skills":   d.snapshotSkills,
	}

	failed := 0
	for name, load := range snapshots {
		state, err := load(ctx)
		if err != nil {
			d.logger.Error("State snapshot failed", "name", name, "error", err)
			failed++
			continue
		}
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			d.logger.Error("State encode failed", "name", name, "error", err)
			failed++
			continue
		}
		if err := d.github.PushStateFile(ctx, name, data); err != nil {
			d.logger.Error("State push failed", "name", name, "error", err)
			failed++
		}
	}

	if failed > 0 {
		d.fail(ctx, "state_push_error", fmt.Errorf("%d snapshots failed to push", failed))
		return
	}
	d.emit(ctx, "state_pushed", models.SeverityInfo, "State snapshots pushed to code host", "")
}

func (d *Dispatcher) snapshotPersonas(ctx context.Context) (any, error) {
	agents, err := d.svc.Agents.ListActiveAgents(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(agents))
	for _, a := range agents {
		persona, err := d.svc.Personas.GetCurrentPersona(ctx, a.ID)
		if err != nil {
			continue
		}
		out[a.DisplayName] = persona
	}
	return out, nil
}

func (d *Dispatcher) snapshotSkills(ctx context.Context) (any, error) {
	agents, err := d.svc.Agents.ListActiveAgents(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(agents))
	for _, a := range agents {
		skills, err := d.svc.Skills.ListSkills(ctx, a.ID)
		if err != nil {
			continue
		}
		out[a.DisplayName] = skills
	}
	return out, nil
}
