// inventory-recount recomputes the reserved counter of every product from the
// live (PENDING/CONFIRMED) appointments that hold it. Use after a crash or a
// manual data fix left the counters out of sync.
//
// Usage:
//   go run ./cmd/inventory-recount --tenant-id=<uuid> [--dry-run=false --confirm=RECOUNT]
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/clodeb/retail_backend/config"
	"github.com/clodeb/retail_backend/models"
)

func main() {
	tenantID := flag.String("tenant-id", "", "Required: tenant id (uuid)")
	dryRun := flag.Bool("dry-run", true, "Show drift only (no writes)")
	confirm := flag.String("confirm", "", "Type RECOUNT to proceed when dry-run=false")
	flag.Parse()

	if strings.TrimSpace(*tenantID) == "" {
		fmt.Fprintln(os.Stderr, "--tenant-id is required")
		os.Exit(1)
	}
	if !*dryRun && strings.TrimSpace(*confirm) != "RECOUNT" {
		fmt.Fprintln(os.Stderr, "set --confirm=RECOUNT to proceed")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	var tenant models.Tenant
	if err := db.Where("id = ?", *tenantID).First(&tenant).Error; err != nil {
		fmt.Fprintf(os.Stderr, "tenant not found: %v\n", err)
		os.Exit(1)
	}

	type row struct {
		ProductId int
		Holds     int
	}
	var holds []row
	err := db.Model(&models.Appointment{}).
		Select("product_id, COUNT(*) AS holds").
		Where("tenant_id = ? AND product_id IS NOT NULL AND status IN ?",
			*tenantID, []models.AppointmentStatus{models.AppointmentStatusPending, models.AppointmentStatusConfirmed}).
		Group("product_id").
		Scan(&holds).Error
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to count holds: %v\n", err)
		os.Exit(1)
	}
	holdByProduct := make(map[int]int, len(holds))
	for _, h := range holds {
		holdByProduct[h.ProductId] = h.Holds
	}

	var products []models.Product
	if err := db.Where("tenant_id = ?", *tenantID).Find(&products).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to load products: %v\n", err)
		os.Exit(1)
	}

	drift := 0
	for _, p := range products {
		want := holdByProduct[p.ID]
		if want > p.Stock {
			// more live holds than stock; cap at stock, the invariant wins
			want = p.Stock
		}
		if want == p.Reserved {
			continue
		}
		drift++
		fmt.Printf("product %d %q: reserved=%d recount=%d\n", p.ID, p.Name, p.Reserved, want)
		if *dryRun {
			continue
		}
		err := db.Model(&models.Product{}).Where("id = ?", p.ID).
			Update("reserved", want).Error
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to fix product %d: %v\n", p.ID, err)
			os.Exit(1)
		}
	}

	if drift == 0 {
		fmt.Println("reserved counters consistent, nothing to do")
	} else if *dryRun {
		fmt.Printf("%d product(s) drifted (dry run, no writes)\n", drift)
	} else {
		fmt.Printf("%d product(s) fixed\n", drift)
	}
}
