package uploads

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// RunDailyBackup copies srcDir into a timestamped folder of backupDir every
// day at hour, then prunes backups older than retention. It returns when
// ctx is cancelled.
func RunDailyBackup(ctx context.Context, srcDir, backupDir string, retention time.Duration, hour int) {
	for {
		next := nextRun(time.Now(), hour)
		log.Printf("⏳ Next image backup scheduled at: %s", next.Format("2006-01-02 15:04:05"))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("🛑 Image backup routine stopped")
			return
		case <-timer.C:
		}

		if err := Backup(srcDir, backupDir, time.Now()); err != nil {
			log.Printf("❌ Failed to back up images: %v", err)
		}
		cleanupOldBackups(backupDir, retention)
	}
}

func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// Backup copies srcDir into backupDir/<timestamp>.
func Backup(srcDir, backupDir string, at time.Time) error {
	destDir := filepath.Join(backupDir, at.Format("2006-01-02_15-04-05"))
	if err := copyDir(srcDir, destDir); err != nil {
		return err
	}
	log.Printf("✅ Images backed up to %s", destDir)
	return nil
}

func copyDir(src, dest string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		destPath := filepath.Join(dest, entry.Name())

		if entry.IsDir() {
			if err := copyDir(srcPath, destPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, destPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func cleanupOldBackups(backupDir string, retention time.Duration) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		log.Printf("❌ Failed to read backup directory: %v", err)
		return
	}

	cutoff := time.Now().Add(-retention)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folderPath := filepath.Join(backupDir, entry.Name())
		info, err := os.Stat(folderPath)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.RemoveAll(folderPath); err != nil {
				log.Printf("❌ Failed to remove old backup %s: %v", folderPath, err)
			} else {
				log.Printf("🗑️ Removed old backup: %s", folderPath)
			}
		}
	}
}
