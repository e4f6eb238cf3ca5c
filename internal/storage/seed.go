package storage

import "context"

// DefaultListID is the built-in list that can never be deleted.
const DefaultListID = "list_today"

func defaultLists() []List {
	return []List{
		{ID: DefaultListID, Name: "所有任务", Icon: "📋"},
		{ID: "list_work", Name: "工作", Icon: "💼"},
		{ID: "list_life", Name: "生活", Icon: "🏡"},
	}
}

func defaultSchemes() []Scheme {
	return []Scheme{
		{ID: "scheme_wemeet", Name: "腾讯会议", Icon: "📹", Template: "wemeet://inmeeting?code={param}", Kind: "url", ParamType: "number"},
		{ID: "scheme_mail", Name: "邮件", Icon: "✉️", Template: "mailto:{param}?subject={param}", Kind: "url", ParamType: "string"},
		{ID: "scheme_maps", Name: "高德地图", Icon: "🗺️", Template: "iosamap://path?sourceApplication=linkflow&dname={param}", Kind: "url", ParamType: "string"},
		{ID: "scheme_weixin_scanqrcode", Name: "微信-扫一扫", Icon: "🟢", Template: "weixin://scanqrcode", Kind: "url", ParamType: "string"},
		{ID: "scheme_zhihu_search", Name: "知乎-搜索", Icon: "🔎", Template: "zhihu://search?q={param}", Kind: "url", ParamType: "string"},
		{ID: "scheme_macos_tel", Name: "macos-电话", Icon: "📞", Template: "tel://{param}", Kind: "url", ParamType: "number"},
		{ID: "scheme_macos_message", Name: "macos-邮件", Icon: "📨", Template: "message://", Kind: "url", ParamType: "string"},
	}
}

// SeedDefaults populates built-in lists and url schemes on a fresh database.
// Existing rows are left alone.
func (r *SQLiteRepository) SeedDefaults(ctx context.Context) error {
	var listCount int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lists`).Scan(&listCount); err != nil {
		return err
	}
	if listCount == 0 {
		for _, list := range defaultLists() {
			if err := r.CreateList(ctx, list); err != nil {
				return err
			}
		}
	}

	var schemeCount int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schemes`).Scan(&schemeCount); err != nil {
		return err
	}
	if schemeCount == 0 {
		for _, scheme := range defaultSchemes() {
			if err := r.CreateScheme(ctx, scheme); err != nil {
				return err
			}
		}
	}
	return nil
}
