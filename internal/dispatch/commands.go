package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rpggio/rollcall/internal/domain/activity"
	"github.com/rpggio/rollcall/internal/domain/attendance"
)

// Command names.
const (
	CmdStart        = "start"
	CmdHelp         = "help"
	CmdCancel       = "cancel"
	CmdListGroups   = "list_groups"
	CmdSample       = "sample"
	CmdGetLogChat   = "get_log_chat"
	CmdSetLogChat   = "set_log_chat"
	CmdClearLogChat = "clear_log_chat"
	CmdBackup       = "backup"
	CmdBackups      = "backups"
	CmdRestoreFrom  = "restore_from"
	CmdAdmins       = "admins"
	CmdAddGroup     = "add_group"
	CmdDeleteGroup  = "delete_group"
	CmdActivity     = "activity"
)

const activityLimit = 10

// HandleCommand handles a slash command. Unknown names fall back to the main
// menu.
func (d *Dispatcher) HandleCommand(ctx context.Context, op Operator, chat Chat, name, args string) (r Render) {
	defer d.recoverInto(&r, "command", op.ID)

	if !d.Authorized(op.ID) {
		d.logger.Warn("unauthorized command", "operator_id", op.ID, "command", name)
		return denied()
	}
	name = normalizeCommand(name)
	args = strings.TrimSpace(args)

	switch name {
	case CmdStart:
		return screen(startText, mainMenu())
	case CmdHelp:
		return screen(helpText, mainMenu())
	case CmdCancel:
		if d.sessions.Cancel(op.ID) {
			return reply("Process cancelled.")
		}
		return Render{Text: noActiveProcessText, Notice: NoticeNoActiveProcess}
	case CmdListGroups:
		return d.listGroups(ctx)
	case CmdSample:
		if err := d.attendance.AddSampleGroups(ctx); err != nil {
			return d.commandError(err)
		}
		d.audit(ctx, op.ID, activity.TypeSampleGroupsAdded, "sample groups added", nil)
		return reply("Sample groups added.")
	case CmdGetLogChat:
		settings, err := d.attendance.Settings(ctx)
		if err != nil {
			return d.commandError(err)
		}
		if settings.LogChatID == nil {
			return reply("Current log chat id: not set")
		}
		return reply(fmt.Sprintf("Current log chat id: %d", *settings.LogChatID))
	case CmdSetLogChat:
		return d.setLogChat(ctx, op, chat, args)
	case CmdClearLogChat:
		if err := d.attendance.ClearLogChat(ctx); err != nil {
			return d.commandError(err)
		}
		d.audit(ctx, op.ID, activity.TypeLogChatCleared, "log chat cleared", nil)
		return reply("Log chat cleared.")
	case CmdBackup:
		name, err := d.attendance.Backup(ctx)
		if err != nil {
			return d.commandError(err)
		}
		d.audit(ctx, op.ID, activity.TypeBackupCreated, name, map[string]string{"name": name})
		return reply("Backup created: " + name)
	case CmdBackups:
		return d.listBackups(ctx)
	case CmdRestoreFrom:
		return d.restore(ctx, op, args)
	case CmdAdmins:
		ids := make([]string, 0, len(d.operatorID))
		for _, id := range d.operatorID {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		return reply("Admins: " + strings.Join(ids, ", "))
	case CmdAddGroup:
		return d.addGroup(ctx, op, args)
	case CmdDeleteGroup:
		if args == "" {
			return Render{Text: "Usage: /delete_group <name>", Notice: NoticeInvalidChoice}
		}
		if err := d.attendance.DeleteGroup(ctx, args); err != nil {
			return d.commandError(err)
		}
		d.audit(ctx, op.ID, activity.TypeGroupDeleted, args, map[string]string{"group": args})
		return reply("Group deleted: " + args)
	case CmdActivity:
		return d.recentActivity(ctx)
	}
	return screen(fallbackText, mainMenu())
}

func normalizeCommand(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name)
}

func (d *Dispatcher) listGroups(ctx context.Context) Render {
	groups, err := d.attendance.Groups(ctx)
	if err != nil {
		return d.commandError(err)
	}
	if len(groups) == 0 {
		return reply("No groups found.")
	}
	var b strings.Builder
	b.WriteString("Groups:")
	for _, g := range groups {
		fmt.Fprintf(&b, "\n- %s (%d students) code: %s", g.Name, len(g.Students), g.Code)
	}
	return reply(b.String())
}

// setLogChat points summaries at the current shared chat, or at the id given
// as argument from a private chat.
func (d *Dispatcher) setLogChat(ctx context.Context, op Operator, chat Chat, args string) Render {
	target := chat.ID
	if !chat.Type.IsShared() {
		if args == "" {
			return Render{
				Text:   "Send this command inside a group to use that group, or /set_log_chat <chat_id>.",
				Notice: NoticeInvalidChoice,
			}
		}
		id, err := strconv.ParseInt(strings.Fields(args)[0], 10, 64)
		if err != nil {
			return Render{Text: "Please send the chat id as a number.", Notice: NoticeInvalidChoice}
		}
		target = id
	}
	if err := d.attendance.SetLogChat(ctx, target); err != nil {
		return d.commandError(err)
	}
	d.audit(ctx, op.ID, activity.TypeLogChatSet, strconv.FormatInt(target, 10), map[string]int64{"chat_id": target})
	if chat.Type.IsShared() {
		return reply("This chat will receive attendance summaries.")
	}
	return reply(fmt.Sprintf("Log chat set to id %d", target))
}

func (d *Dispatcher) listBackups(ctx context.Context) Render {
	names, err := d.attendance.Backups(ctx)
	if err != nil {
		return d.commandError(err)
	}
	if len(names) == 0 {
		return reply("No backups yet.")
	}
	return reply("Backups:\n" + strings.Join(names, "\n"))
}

func (d *Dispatcher) restore(ctx context.Context, op Operator, args string) Render {
	if args == "" {
		return Render{Text: "Usage: /restore_from <backup_filename>", Notice: NoticeInvalidChoice}
	}
	name := strings.Fields(args)[0]
	if err := d.attendance.Restore(ctx, name); err != nil {
		if !errors.Is(err, attendance.ErrBackupNotFound) && !errors.Is(err, attendance.ErrInvalidInput) {
			d.logger.Error("restore failed", "name", name, "error", err)
			return Render{Text: "Restoring the document failed.", Notice: NoticeFailure}
		}
		return d.commandError(err)
	}
	d.audit(ctx, op.ID, activity.TypeDocumentRestored, name, map[string]string{"name": name})
	return reply("Document restored from " + name)
}

// addGroup parses "<name> | <code> | student; student; ...".
func (d *Dispatcher) addGroup(ctx context.Context, op Operator, args string) Render {
	g, err := parseGroup(args)
	if err != nil {
		return Render{Text: "Usage: /add_group <name> | <code> | student; student; ...", Notice: NoticeInvalidChoice}
	}
	if err := d.attendance.AddGroup(ctx, g); err != nil {
		return d.commandError(err)
	}
	d.audit(ctx, op.ID, activity.TypeGroupAdded, g.Name, map[string]any{"group": g.Name, "students": len(g.Students)})
	return reply(fmt.Sprintf("Group saved: %s (%d students)", g.Name, len(g.Students)))
}

func parseGroup(args string) (attendance.Group, error) {
	parts := strings.Split(args, "|")
	if len(parts) != 3 {
		return attendance.Group{}, attendance.ErrInvalidInput
	}
	g := attendance.Group{
		Name:     strings.TrimSpace(parts[0]),
		Code:     strings.TrimSpace(parts[1]),
		Students: []string{},
	}
	if g.Name == "" {
		return attendance.Group{}, attendance.ErrInvalidInput
	}
	for _, st := range strings.Split(parts[2], ";") {
		if st = strings.TrimSpace(st); st != "" {
			g.Students = append(g.Students, st)
		}
	}
	return g, nil
}

func (d *Dispatcher) recentActivity(ctx context.Context) Render {
	if d.activity == nil {
		return reply("Activity log is disabled.")
	}
	entries, err := d.activity.GetRecentActivity(ctx, activity.ListActivityOptions{Limit: activityLimit})
	if err != nil {
		return d.commandError(err)
	}
	if len(entries) == 0 {
		return reply("No activity yet.")
	}
	var b strings.Builder
	b.WriteString("Recent activity:")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%s  %d  %s  %s", e.CreatedAt.Format("2006-01-02 15:04"), e.OperatorID, e.ActivityType, e.Summary)
	}
	return reply(b.String())
}
