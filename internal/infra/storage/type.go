package storage

// GuildModerationUpdate para updates parciales desde /modconfig.
type GuildModerationUpdate struct {
	MaxWarnSeverity *int
	WarnTimeoutDays *int
	MuteRoleID      *string
	LogChannelID    *string
	StaffRoleID     *string
}

// Empty: ningún campo seteado.
func (u GuildModerationUpdate) Empty() bool {
	return u.MaxWarnSeverity == nil && u.WarnTimeoutDays == nil &&
		u.MuteRoleID == nil && u.LogChannelID == nil && u.StaffRoleID == nil
}
