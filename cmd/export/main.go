// export regenerates the plain-text employee listing from the JSON snapshot.
// Use after a crash that may have left the export behind the snapshot.
package main

import (
	"flag"
	"log"

	"employee-access-service/internal/config"
	"employee-access-service/internal/identity/store"
)

func main() {
	dir := flag.String("data-dir", "", "Data directory (overrides DATA_DIR)")
	flag.Parse()

	dataDir := *dir
	if dataDir == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		dataDir = cfg.DataDir
	}

	fs, err := store.OpenFile(dataDir)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	if err := fs.RegenerateExport(); err != nil {
		log.Fatalf("regenerate export: %v", err)
	}
	log.Printf("export regenerated for %d identities in %s", fs.Len(), dataDir)
}
