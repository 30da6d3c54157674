package app

// Options configures the services built by NewServices.
type Options struct {
	BcryptCost       int
	MaxLoginAttempts int
	Exam             ExamOptions
}

// Services groups the use cases exposed to the presentation layer and the CLI.
type Services struct {
	Auth      *AuthService
	Catalog   *CatalogService
	Importer  *Importer
	Generator *Generator
	Recorder  *Recorder
	Analytics *AnalyticsService
	Exams     *ExamService
}

// NewServices wires the use cases over one store. notifier may be nil.
func NewServices(store Store, pool QuestionPool, sessions SessionRepository, notifier ResultNotifier, opts Options) *Services {
	auth := NewAuthService(store, opts.BcryptCost, opts.MaxLoginAttempts)
	catalog := NewCatalogService(store, store, pool)
	generator := NewGenerator(pool)
	recorder := NewRecorder(store, notifier)
	return &Services{
		Auth:      auth,
		Catalog:   catalog,
		Importer:  NewImporter(catalog),
		Generator: generator,
		Recorder:  recorder,
		Analytics: NewAnalyticsService(store),
		Exams:     NewExamService(auth, catalog, generator, recorder, sessions, opts.Exam),
	}
}
