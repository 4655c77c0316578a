package configs

import "github.com/spf13/viper"

// SupabaseConfig Supabase Storage 配置，使用 service role key 访问 REST 接口.
type SupabaseConfig struct {
	URL            string `mapstructure:"url"              rule:"omitempty,url"`
	ServiceRoleKey string `mapstructure:"service_role_key"`
	Bucket         string `mapstructure:"bucket"`
}

const DefaultSupabaseBucket = "media"

func (c *SupabaseConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("storage.supabase.url", "")
	v.SetDefault("storage.supabase.service_role_key", "")
	v.SetDefault("storage.supabase.bucket", DefaultSupabaseBucket)
}
