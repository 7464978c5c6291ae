package config

var defaults = map[string]any{
	"secret":            "",
	"token_ttl":         8 * 60 * 60, // 8 hours
	"token_expiry_skew": 5,
	"log_level":         "info",
	"listen":            ":8080",

	"nonce_store": "memory",

	"allowed_networks": "",
	"cors_origins":     "",
	"api_key":          "",

	"users_file": "users.yaml",

	"locker.id":           "Locker1",
	"locker.settle_delay": "1s",

	"activity.cap":        1000,
	"activity.read_limit": 100,

	"rate_limit.requests": 100,
	"rate_limit.window":   "60s",

	"qr.code_ttl":   5 * 60,
	"qr.image_size": QR_IMAGE_SIZE,

	"notify.recipients": []string{},
	"notify.types":      []string{"error", "security"},

	"email.host":     "",
	"email.port":     25,
	"email.username": "",
	"email.password": "",
	"email.from":     "noreply@example.com",

	"storage.type":       StorageMemory,
	"storage.local.path": "./data/locker.db",
}

func Defaults() map[string]any {
	values := make(map[string]any)
	for k, v := range defaults {
		values[k] = v
	}
	return values
}
