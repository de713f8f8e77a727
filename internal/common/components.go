package common

const (
	ComponentDownloader    = "downloader"
	ComponentSyncManager   = "sync-manager"
	ComponentReorgDetector = "reorg-detector"
	ComponentResolver      = "resolver"
	ComponentProjector     = "projector"
	ComponentStore         = "store"
	ComponentAPI           = "api"
	ComponentChat          = "chat"
)

var AllComponents = map[string]struct{}{
	ComponentDownloader:    {},
	ComponentSyncManager:   {},
	ComponentReorgDetector: {},
	ComponentResolver:      {},
	ComponentProjector:     {},
	ComponentStore:         {},
	ComponentAPI:           {},
	ComponentChat:          {},
}
