package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("PLAYFORGE_TEST_MODE") == "" {
			_ = os.Setenv("PLAYFORGE_TEST_MODE", "1")
		}
	})
}
