package treediff

// DefaultTeamLine is the ownership boilerplate that build files gain after
// migration; lines matching it are ignored when comparing trees.
const DefaultTeamLine = `default_team: "trendy_team_android_rust"`

// IgnoredFiles lists base names (shell patterns) that are excluded when
// comparing a legacy crate against its managed counterpart: build tool
// caches, VCS metadata, lockfiles, CI and editor configuration.
var IgnoredFiles = []string{
	".appveyor.yml",
	".bazelci",
	".bazelignore",
	".bazelrc",
	".bazelversion",
	".buildkite",
	".cargo",
	".cargo-checksum.json",
	".cargo_vcs_info.json",
	".circleci",
	".cirrus.yml",
	".clang-format",
	".clang-tidy",
	".clippy.toml",
	".clog.toml",
	".codecov.yaml",
	".codecov.yml",
	".editorconfig",
	".envrc",
	".gcloudignore",
	".gdbinit",
	".git",
	".git-blame-ignore-revs",
	".git-ignore-revs",
	".gitallowed",
	".gitattributes",
	".github",
	".gitignore",
	".idea",
	".ignore",
	".istanbul.yml",
	".mailmap",
	".md-inc.toml",
	".mdl-style.rb",
	".mdlrc",
	".pylintrc",
	".pylintrc-examples",
	".pylintrc-tests",
	".reuse",
	".rspec",
	".rustfmt.toml",
	".shellcheckrc",
	".standard-version",
	".tarpaulin.toml",
	".tokeignore",
	".travis.yml",
	".versionrc",
	".vim",
	".vscode",
	".yapfignore",
	".yardopts",
	"BUILD",
	"Cargo.lock",
	"Cargo.lock.saved",
	"Cargo.toml.orig",
	"OWNERS",
	// Deprecated config file for rules.mk.
	"cargo2rulesmk.json",
	// cargo_embargo intermediates.
	"Android.bp.orig",
	"cargo.metadata",
	"cargo.out",
	"target.tmp",
}
