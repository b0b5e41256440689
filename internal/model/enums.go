package model

type ConnectionStatus string

const (
	ConnectionStatusPending   ConnectionStatus = "pending"
	ConnectionStatusCompleted ConnectionStatus = "completed"
	ConnectionStatusExpired   ConnectionStatus = "expired"
	ConnectionStatusCancelled ConnectionStatus = "cancelled"
)

type LinkState string

const (
	LinkStateDisconnected LinkState = "disconnected"
	LinkStatePending      LinkState = "pending"
	LinkStateConnected    LinkState = "connected"
)
