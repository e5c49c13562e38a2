package config

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"time"
)

// BackupDatabase dumps the CRM database to a timestamped file under
// ./backups. Runs nightly from the maintenance scheduler.
func BackupDatabase() error {
	password := GetEnv("POSTGRES_PASSWORD")
	cmd := fmt.Sprintf("PGPASSWORD=%s pg_dump -h %s -U %s %s", password, GetEnv("POSTGRES_HOST"), GetEnv("POSTGRES_USER"), GetEnv("POSTGRES_DB"))
	execCmd := exec.Command("bash", "-c", cmd)
	output, err := execCmd.CombinedOutput()
	if err != nil {
		log.Printf("Error backing up database: %v", err)
		log.Println(string(output))
		return err
	}

	if err := os.MkdirAll("./backups", 0755); err != nil {
		return err
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	fileName := fmt.Sprintf("./backups/db_backup_%s.sql", timestamp)
	err = os.WriteFile(fileName, output, 0644)
	if err != nil {
		log.Printf("Error writing database backup to file: %v", err)
		return err
	}
	log.Printf("Database backup successful: %s", fileName)
	return nil
}
