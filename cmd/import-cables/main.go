// import-cables runs a reconciliation pass over local spreadsheet files,
// without going through the HTTP surface. Useful for the initial load of a
// vessel registry.
//
// Usage:
//   DB_USER=... DB_NAME=... go run ./cmd/import-cables -vessel <vesselId> file1.xlsx [file2.xlsx ...]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"bitbucket.org/mmdatafocus/cabletrack_backend/config"
	"bitbucket.org/mmdatafocus/cabletrack_backend/ingest"
	"bitbucket.org/mmdatafocus/cabletrack_backend/models"
	"bitbucket.org/mmdatafocus/cabletrack_backend/utils"
	"bitbucket.org/mmdatafocus/cabletrack_backend/workflow"
)

func main() {
	vessel := flag.String("vessel", "", "vessel id the cables belong to")
	flag.Parse()

	if *vessel == "" || flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: import-cables -vessel <vesselId> <file.xlsx> [...]")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	var files []ingest.WorkbookFile
	for _, path := range flag.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "unable to read %s: %v\n", path, err)
			os.Exit(1)
		}
		files = append(files, ingest.WorkbookFile{Name: filepath.Base(path), Data: data})
	}

	ctx := context.Background()
	ctx = utils.SetVesselIdInContext(ctx, *vessel)
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "System")
	ctx = utils.SetIsAdminInContext(ctx, true)

	result, err := workflow.RunImport(ctx, files, models.Capability{UserId: 0, Role: models.UserRoleAdmin})
	if err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("run %d: %d rows read (%d accepted, %d rejected), %d added, %d updated, %d unchanged\n",
		result.RunId, result.RowsRead, result.RowsAccepted, result.RowsRejected,
		result.Stats.Added, result.Stats.UpdatedMetadata, result.Stats.Unchanged)
	for _, w := range result.Warnings {
		fmt.Println("warning:", w)
	}
}
