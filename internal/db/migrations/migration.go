package migrations

import (
	"gorm.io/gorm"
)

type Migration struct {
	Name string
	Run  func(*gorm.DB) error
}

// GetMigrations returns the declarative layer that gorm's AutoMigrate cannot
// express: enum checks, the signup trigger, the monthly reset function and
// the row-level security policies. All of it is Postgres-only and skipped on
// other dialects (tests run on sqlite, where the model hooks and owner-scoped
// repositories enforce the same rules).
func GetMigrations() []Migration {
	return []Migration{
		{
			Name: "AddEnumCheckConstraints",
			Run: func(db *gorm.DB) error {
				if db.Dialector.Name() != "postgres" {
					return nil
				}
				return db.Exec(`
					DO $$ BEGIN
						ALTER TABLE profiles ADD CONSTRAINT profiles_plan_check
							CHECK (plan IN ('free', 'starter', 'pro', 'business'));
					EXCEPTION WHEN duplicate_object THEN NULL;
					END $$;

					DO $$ BEGIN
						ALTER TABLE evaluations ADD CONSTRAINT evaluations_input_type_check
							CHECK (input_type IN ('text', 'image'));
					EXCEPTION WHEN duplicate_object THEN NULL;
					END $$;
				`).Error
			},
		},
		{
			Name: "CreateSignupTrigger",
			Run: func(db *gorm.DB) error {
				if db.Dialector.Name() != "postgres" {
					return nil
				}
				return db.Exec(`
					CREATE OR REPLACE FUNCTION handle_new_user()
					RETURNS trigger AS $$
					BEGIN
						INSERT INTO profiles (id, email, plan, evaluations_this_month, evaluations_total, created_at, updated_at)
						VALUES (NEW.id, NEW.email, 'free', 0, 0, now(), now())
						ON CONFLICT (id) DO NOTHING;
						RETURN NEW;
					END;
					$$ LANGUAGE plpgsql SECURITY DEFINER;

					DROP TRIGGER IF EXISTS on_user_created ON users;
					CREATE TRIGGER on_user_created
						AFTER INSERT ON users
						FOR EACH ROW EXECUTE FUNCTION handle_new_user();
				`).Error
			},
		},
		{
			Name: "CreateMonthlyResetFunction",
			Run: func(db *gorm.DB) error {
				if db.Dialector.Name() != "postgres" {
					return nil
				}
				return db.Exec(`
					CREATE OR REPLACE FUNCTION reset_monthly_evaluations()
					RETURNS void AS $$
					BEGIN
						UPDATE profiles SET evaluations_this_month = 0, updated_at = now();
					END;
					$$ LANGUAGE plpgsql SECURITY DEFINER;
				`).Error
			},
		},
		{
			Name: "EnableRowLevelSecurity",
			Run: func(db *gorm.DB) error {
				if db.Dialector.Name() != "postgres" {
					return nil
				}
				// The API connects with a single role and scopes queries by
				// owner in the repository layer; these policies cover sessions
				// that set app.user_id and talk to the tables directly.
				return db.Exec(`
					ALTER TABLE profiles ENABLE ROW LEVEL SECURITY;
					ALTER TABLE evaluations ENABLE ROW LEVEL SECURITY;

					DROP POLICY IF EXISTS profiles_owner_select ON profiles;
					CREATE POLICY profiles_owner_select ON profiles
						FOR SELECT USING (id = current_setting('app.user_id', true)::uuid);

					DROP POLICY IF EXISTS profiles_owner_update ON profiles;
					CREATE POLICY profiles_owner_update ON profiles
						FOR UPDATE USING (id = current_setting('app.user_id', true)::uuid);

					DROP POLICY IF EXISTS evaluations_owner_select ON evaluations;
					CREATE POLICY evaluations_owner_select ON evaluations
						FOR SELECT USING (user_id = current_setting('app.user_id', true)::uuid);

					DROP POLICY IF EXISTS evaluations_owner_insert ON evaluations;
					CREATE POLICY evaluations_owner_insert ON evaluations
						FOR INSERT WITH CHECK (user_id = current_setting('app.user_id', true)::uuid);
				`).Error
			},
		},
	}
}
