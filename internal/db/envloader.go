package db

import "github.com/joho/godotenv"

// Load environment variables from a .env file next to the working directory
// or up to two levels above it. Existing variables are never overwritten, so
// a missing file is not an error.
func init() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}
