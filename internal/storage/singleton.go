package storage

import "sync"

var (
	instanceMu sync.Mutex
	instance   *Manager
)

// Instance returns the process-wide manager, creating an unopened one on a
// SQLite driver in the working directory if none has been installed.
func Instance() *Manager {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		instance = NewManager(NewSQLiteDriver("."), DefaultDatabaseName)
	}
	return instance
}

// SetInstance installs m as the process-wide manager.
func SetInstance(m *Manager) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = m
}

// ResetInstance closes and discards the process-wide manager. The next
// Instance call creates a new one.
func ResetInstance() error {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		return nil
	}
	err := instance.Close()
	instance = nil
	return err
}
