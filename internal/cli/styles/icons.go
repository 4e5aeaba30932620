package styles

// Nerd Font icons (requires a Nerd Font to display correctly)
const (
	IconGlobe    = "\uf0ac" // web
	IconCheck    = "\uf00c" // check
	IconX        = "\uf00d" // x
	IconWarning  = "\uf071" // warning
	IconInfo     = "\uf05a" // info
	IconConfig   = "\ue615" // config
	IconDatabase = "\uf1c0" // database
	IconCursor   = "\uf054" // chevron-right
	IconClock    = "\uf017" // clock
	IconCookie   = "\uf563" // cookie
	IconBell     = "\uf0f3" // bell
	IconRoute    = "\uf4d7" // route
	IconTrash    = "\uf1f8" // trash
)
