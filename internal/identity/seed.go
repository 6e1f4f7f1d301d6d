package identity

import "dsm-gateway/internal/model"

func ptr(v int64) *int64 { return &v }

func seedMenus() []model.MenuItem {
	return []model.MenuItem{
		{ID: 1, ParentID: nil, MenuName: "workplace", OrderNum: 0, Path: "/workplace", Cache: true, Icon: "monitor-cog"},
		{ID: 2, ParentID: ptr(1), MenuName: "home", OrderNum: 0, Path: "/workplace/home", Cache: true, Icon: "house"},
		{ID: 3, ParentID: ptr(1), MenuName: "about", OrderNum: 1, Path: "/workplace/about", Cache: true, Icon: "badge-info"},
		{ID: 8, ParentID: nil, MenuName: "profile", OrderNum: 2, Path: "/profile", Cache: true, Icon: "user"},
		{ID: 4, ParentID: nil, MenuName: "system", OrderNum: 0, Path: "/system", Cache: true, Icon: "file-sliders"},
		{ID: 5, ParentID: ptr(4), MenuName: "user", OrderNum: 1, Path: "/system/user", Cache: true, Icon: "user"},
		{ID: 6, ParentID: ptr(4), MenuName: "dept", OrderNum: 1, Path: "/system/dept", Cache: true, Icon: "ruler"},
		{ID: 7, ParentID: ptr(4), MenuName: "menu", OrderNum: 0, Path: "/system/menu", Cache: true, Icon: "menu"},
	}
}

func menusExcept(excluded ...int64) []model.MenuItem {
	skip := make(map[int64]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}

	var out []model.MenuItem
	for _, item := range seedMenus() {
		if _, ok := skip[item.ID]; ok {
			continue
		}
		out = append(out, item)
	}

	return out
}

func seedUsers() []model.UserInfo {
	return []model.UserInfo{
		{
			ID:          0,
			Username:    "admin",
			Nickname:    "Administrator",
			Email:       "admin@example.com",
			Phone:       "17607003598",
			Sex:         "1",
			Avatar:      "https://api.dicebear.com/7.x/avataaars/svg?seed=admin",
			Authorities: []string{"admin"},
			Permissions: []string{
				"dashboard:view", "home:view", "user:view", "dept:view",
				"about:view", "menu:view", "system:view", "profile:view",
			},
			Menus: seedMenus(),
		},
		{
			ID:          1,
			Username:    "manager",
			Nickname:    "Manager",
			Email:       "manager@example.com",
			Phone:       "13800138000",
			Sex:         "1",
			Avatar:      "https://api.dicebear.com/7.x/avataaars/svg?seed=manager",
			Authorities: []string{"manager"},
			Permissions: []string{"dashboard:view", "home:view", "user:view", "dept:view", "profile:view"},
			Menus:       menusExcept(7),
		},
		{
			ID:          2,
			Username:    "user",
			Nickname:    "User",
			Email:       "user@example.com",
			Phone:       "13900139000",
			Sex:         "0",
			Avatar:      "https://api.dicebear.com/7.x/avataaars/svg?seed=user",
			Authorities: []string{"user"},
			Permissions: []string{"dashboard:view", "home:view", "profile:view"},
			Menus:       menusExcept(5, 6, 7),
		},
	}
}
