package mcpserver

// FolderFormatContract describes the flat folder map that export_folders
// returns and that the import endpoint accepts.
const FolderFormatContract = `# Macro Folder Map Format

The folder tree is persisted as one JSON object keyed by folder id.

## Record

` + "```" + `json
{
  "mfolder_a1B2c3D4e5": {
    "_id": "mfolder_a1B2c3D4e5",
    "titleText": "Spells",
    "colorText": "#000000",
    "fontColorText": "#FFFFFF",
    "folderIcon": "/icons/wand.png",
    "pathToFolder": ["mfolder_Zz9Yy8Xx7W"],
    "macroList": ["heal", "spells/fire"],
    "playerDefault": null
  }
}
` + "```" + `

## Rules

1. **` + "`" + `pathToFolder` + "`" + `** lists ancestor ids from the root down; it is empty for a
   root folder. Its length must stay below the depth limit (8 by default).
2. **` + "`" + `macroList` + "`" + `** holds entry ids in display order. An entry id appears in
   at most one folder across the whole map.
3. **Colors** are hex strings (` + "`" + `#RGB` + "`" + `, ` + "`" + `#RRGGBB` + "`" + ` or ` + "`" + `#RRGGBBAA` + "`" + `). Empty values
   fall back to ` + "`" + `#000000` + "`" + ` (background) and ` + "`" + `#FFFFFF` + "`" + ` (font).
4. **` + "`" + `playerDefault` + "`" + `** is a user id or null. New entries authored by that user
   land in this folder. At most one folder per user.
5. **Reserved ids.** ` + "`" + `default` + "`" + ` holds entries without a folder and is always a
   root. ` + "`" + `hidden` + "`" + ` holds entries removed from view. Neither can be nested into,
   moved or deleted.
6. **Unknown fields are rejected.** The keys ` + "`" + `type` + "`" + `, ` + "`" + `entity` + "`" + `, ` + "`" + `sorting` + "`" + `,
   ` + "`" + `parent` + "`" + ` and ` + "`" + `expanded` + "`" + ` from older exports are accepted and dropped. Ids that no longer exist on the host are pruned
   when the map is reconciled.

## Icons

- Set a folder icon with the ` + "`" + `set_folder_icon` + "`" + ` tool. It stores the image under
  ` + "`" + `/icons/` + "`" + ` and writes the URL into ` + "`" + `folderIcon` + "`" + `.
- Supported formats: png, jpg, jpeg, gif, webp, svg.
`
