package rbac

// Equipment permissions.
const (
	PermEquipmentView   = "equipment.view"
	PermEquipmentEdit   = "equipment.edit"
	PermEquipmentDelete = "equipment.delete"
)

// Booking permissions.
const (
	PermBookingsView    = "bookings.view"
	PermBookingsCreate  = "bookings.create"
	PermBookingsApprove = "bookings.approve"
	PermBookingsReject  = "bookings.reject"
)

// Client, communication and back-office permissions.
const (
	PermClientsView  = "clients.view"
	PermClientsEdit  = "clients.edit"
	PermChatAccess   = "chat.access"
	PermGPSView      = "gps.view"
	PermReportsView  = "reports.view"
	PermSettingsEdit = "settings.edit"
	PermUsersManage  = "users.manage"
)

// AllPermissions lists every token known to the application.
func AllPermissions() []string {
	return []string{
		PermEquipmentView,
		PermEquipmentEdit,
		PermEquipmentDelete,
		PermBookingsView,
		PermBookingsCreate,
		PermBookingsApprove,
		PermBookingsReject,
		PermClientsView,
		PermClientsEdit,
		PermChatAccess,
		PermGPSView,
		PermReportsView,
		PermSettingsEdit,
		PermUsersManage,
	}
}
