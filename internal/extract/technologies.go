package extract

// defaultTechnologies is the fixed dictionary of languages, frameworks,
// tools, databases, cloud platforms, and AI/ML terms matched by the
// Technology entity matcher. Matching is word-bounded on
// a case-folded copy of the text; the entity keeps the casing the term
// has in the text where it was matched.
var defaultTechnologies = []string{
	// languages
	"Rust", "Python", "JavaScript", "TypeScript", "Go", "Java", "C++", "C#",
	"Ruby", "PHP", "Swift", "Kotlin", "Scala", "Haskell", "Elixir", "Clojure",
	"C", "Perl", "Lua", "R", "Julia", "Dart", "Zig",
	// frameworks
	"React", "Vue", "Angular", "Svelte", "Next.js", "Django", "Flask",
	"FastAPI", "Rails", "Spring", "Express", "Actix", "Tokio", "Axum",
	"Gin", "Echo", "Laravel", "Symfony",
	// tools
	"Docker", "Kubernetes", "Terraform", "Ansible", "Jenkins", "GitHub Actions",
	"GitLab CI", "CircleCI", "Webpack", "Vite", "Cargo", "npm", "yarn", "pnpm",
	"pip", "Poetry", "Make", "Bazel", "Nix",
	// databases
	"PostgreSQL", "MySQL", "SQLite", "MongoDB", "Redis", "Cassandra",
	"DynamoDB", "Elasticsearch", "FalkorDB", "Neo4j", "CockroachDB",
	// cloud
	"AWS", "GCP", "Azure", "Cloudflare", "Vercel", "Netlify", "Heroku",
	"DigitalOcean", "Fly.io",
	// AI/ML
	"PyTorch", "TensorFlow", "Keras", "Hugging Face", "OpenAI", "Anthropic",
	"LangChain", "scikit-learn", "NumPy", "Pandas", "CUDA", "ONNX",
}
