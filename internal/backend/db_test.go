package backend_test

import (
	"log/slog"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dewpoint.dev/monitor/internal/backend"
)

var _ = Describe("Database", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = newTestLogger()
	})

	Describe("NewDB", func() {
		Context("with invalid configuration", func() {
			It("should return error when config is nil", func() {
				db, err := backend.NewDB(nil)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("config cannot be nil"))
				Expect(db).To(BeNil())
			})

			It("should return error when logger is nil", func() {
				db, err := backend.NewDB(&backend.DBConfig{Path: "readings.db"})
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("logger"))
				Expect(db).To(BeNil())
			})

			It("should reject an unknown driver", func() {
				db, err := backend.NewDB(&backend.DBConfig{Logger: logger, Driver: "mongodb"})
				Expect(err).To(MatchError(ContainSubstring(`unsupported database driver "mongodb"`)))
				Expect(db).To(BeNil())
			})

			It("should require a sqlite path", func() {
				_, err := backend.NewDB(&backend.DBConfig{Logger: logger})
				Expect(err).To(MatchError(ContainSubstring("sqlite path cannot be empty")))
			})

			It("should require a postgres host", func() {
				_, err := backend.NewDB(&backend.DBConfig{Logger: logger, Driver: backend.DriverPostgres})
				Expect(err).To(MatchError(ContainSubstring("database host cannot be empty")))
			})
		})

		Context("with sqlite", func() {
			It("should create the database file and migrate the schema", func() {
				path := filepath.Join(GinkgoT().TempDir(), "nested", "readings.db")

				db, err := backend.NewDB(&backend.DBConfig{Logger: logger, Path: path})
				Expect(err).NotTo(HaveOccurred())
				defer func() { _ = backend.CloseDB(db, logger) }()

				Expect(path).To(BeAnExistingFile())
				Expect(db.Migrator().HasTable(&backend.ReadingRecord{})).To(BeTrue())
			})

			It("should open an in-memory database", func() {
				db, err := backend.NewDB(&backend.DBConfig{Logger: logger, Path: ":memory:"})
				Expect(err).NotTo(HaveOccurred())
				defer func() { _ = backend.CloseDB(db, logger) }()

				Expect(db.Migrator().HasTable("readings")).To(BeTrue())
			})
		})

		Context("with postgres", func() {
			It("should fail with an unreachable host", func() {
				db, err := backend.NewDB(&backend.DBConfig{
					Logger:   logger,
					Driver:   backend.DriverPostgres,
					Host:     "invalid-host-that-does-not-exist",
					Port:     5432,
					User:     "test",
					Password: "password",
					DBName:   "testdb",
				})
				Expect(err).To(HaveOccurred())
				Expect(db).To(BeNil())
			})
		})
	})

	Describe("CloseDB", func() {
		It("should handle a nil database", func() {
			Expect(backend.CloseDB(nil, logger)).To(Succeed())
		})
	})
})
